/*
Package client talks HTTP to the container groups API and the deploy API.

Each method sends exactly one request and returns the raw Response. It does
not retry and does not interpret status codes; callers decide what counts
as success. Only request construction failures are returned as
*RequestError, which is permanent: sending the same request again cannot
help. Transport errors are returned wrapped and are usually transient.

# Credentials

Credentials come from the cf CLI config file (~/.cf/config.json by
default). The groups API authenticates with the raw token in X-Auth-Token
and the space GUID in X-Auth-Project-Id. The deploy API takes the token as
a bearer Authorization header and the space GUID in the path.

	creds, err := client.LoadCredentials("")
	if err != nil {
		return err
	}
	c := client.New(client.Config{Credentials: creds})

	resp, err := c.Inspect(ctx, "web", 30*time.Second)

# Endpoints

	GET    {groups}/groups                      List
	GET    {groups}/groups/{name}               Inspect
	POST   {groups}/groups                      SubmitCreate
	DELETE {groups}/groups/{name}[?force=true]  SubmitDelete
	PATCH  {groups}/groups/{name}               SubmitResize
	POST   {groups}/groups/{name}/maproute      SubmitMapRoute
	POST   {groups}/groups/{name}/unmaproute    SubmitUnmapRoute
	DELETE {deploy}/{space}/update/{name}/?force=true  DeleteUpdate

# Logging

Every request is logged at debug level as an equivalent curl command with
credentials masked. Bodies of 400 and 5xx answers are logged sanitized.
SanitizeHeaders and SanitizeMessage are exported for other log sites.

# Testing

Package clienttest provides a scripted fake implementing ResourceClient and
UpdateClient.
*/
package client
