/*
Package types defines the group snapshot shared by every groupctl package.

A Group is what the groups API returns for GET groups/{name}. Only four fields
are interpreted (Name, Status, NumberInstances, Routes); everything else in
the document survives a decode/encode round trip through Group.Extra so that
callers printing a group see what the API actually sent.

# Status Convention

Group status is free text. groupctl interprets it by suffix only:

	CREATE_COMPLETE, DELETE_COMPLETE, ...      -> StatusComplete   (terminal)
	CREATE_IN_PROGRESS, UPDATE_IN_PROGRESS ... -> StatusInProgress
	""                                         -> StatusUnreported
	anything else (CREATE_FAILED, ...)         -> StatusFailed     (terminal)

The convention is the same for every operation; which terminal class counts as
success for a given workflow is decided by the evaluators in pkg/evaluate.
*/
package types
