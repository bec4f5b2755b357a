package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cuemby/groupctl/pkg/orchestrator"
	"github.com/cuemby/groupctl/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply group manifests from a file",
	Long: `Apply one or more Group manifests from a YAML file.

A group that does not exist is created. An existing group is resized when
its desired instance count differs. Routes listed in the manifest are
mapped if they are not already.

Examples:
  # Apply a single group
  groupctl apply -f web.yaml

  # Apply several groups separated by ---
  groupctl apply -f groups.yaml`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// Manifest is a groupctl resource document
type Manifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ManifestMetadata `yaml:"metadata"`
	Spec       GroupSpec        `yaml:"spec"`
}

type ManifestMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// GroupSpec is the spec of a Group manifest. Unset counts take the create
// defaults.
type GroupSpec struct {
	Image   string            `yaml:"image"`
	Desired int               `yaml:"desired"`
	Min     int               `yaml:"min"`
	Max     int               `yaml:"max"`
	Memory  int               `yaml:"memory"`
	Port    int               `yaml:"port"`
	Env     map[string]string `yaml:"env,omitempty"`
	MaxWait time.Duration     `yaml:"maxWait"`
	Routes  []RouteSpec       `yaml:"routes,omitempty"`
}

type RouteSpec struct {
	Hostname string `yaml:"hostname"`
	Domain   string `yaml:"domain"`
}

const kindGroup = "Group"

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}
	defer f.Close()

	manifests, err := decodeManifests(f)
	if err != nil {
		return err
	}

	orch, err := current.orchestrator()
	if err != nil {
		return err
	}

	for i := range manifests {
		if err := applyGroup(cmd, orch, &manifests[i]); err != nil {
			return err
		}
	}
	return nil
}

// decodeManifests reads every document of a multi-document YAML stream
func decodeManifests(r io.Reader) ([]Manifest, error) {
	var manifests []Manifest
	dec := yaml.NewDecoder(r)
	for {
		var m Manifest
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %v", err)
		}
		if m.Kind == "" && m.Metadata.Name == "" {
			continue
		}
		if m.Kind != kindGroup {
			return nil, fmt.Errorf("unsupported resource kind: %s", m.Kind)
		}
		if m.Metadata.Name == "" {
			return nil, fmt.Errorf("%s manifest without metadata.name", m.Kind)
		}
		manifests = append(manifests, m)
	}
	if len(manifests) == 0 {
		return nil, errors.New("no manifests found")
	}
	return manifests, nil
}

func applyGroup(cmd *cobra.Command, orch *orchestrator.Orchestrator, m *Manifest) error {
	ctx := cmd.Context()
	name := m.Metadata.Name
	spec := m.Spec

	existing, _ := orch.InspectGroup(ctx, name)
	if existing == nil {
		if spec.Image == "" {
			return fmt.Errorf("group %s: image is required", name)
		}
		req := orchestrator.CreateRequest{
			Name:    name,
			Image:   spec.Image,
			Desired: spec.Desired,
			Min:     spec.Min,
			Max:     spec.Max,
			Memory:  spec.Memory,
			Port:    spec.Port,
			Env:     spec.Env,
			MaxWait: spec.MaxWait,
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Creating group: %s\n", name)
		o := orch.CreateGroup(ctx, req)
		if err := printOutcome(cmd, fmt.Sprintf("Group created: %s", name), o); err != nil {
			return err
		}
		existing = o.Group
	} else if spec.Desired > 0 && existing.NumberInstances.Desired != spec.Desired {
		fmt.Fprintf(cmd.ErrOrStderr(), "Resizing group: %s\n", name)
		o := orch.ResizeGroup(ctx, name, spec.Desired)
		if err := printOutcome(cmd, fmt.Sprintf("Group resized: %s (desired=%d)", name, spec.Desired), o); err != nil {
			return err
		}
		existing = o.Group
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Group unchanged: %s\n", name)
	}

	for _, r := range spec.Routes {
		route := types.Route(r.Hostname, r.Domain)
		if existing != nil && existing.HasRoute(route) {
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Mapping route: %s\n", route)
		o := orch.MapRoute(ctx, r.Hostname, r.Domain, name)
		if err := printOutcome(cmd, fmt.Sprintf("Route mapped: %s -> %s", route, name), o); err != nil {
			return err
		}
	}
	return nil
}
