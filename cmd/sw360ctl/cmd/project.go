package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sw360-console/sw360"
)

func projectCommand(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "project operations",
	}
	cmd.AddCommand(projectSetCommand(app))
	return cmd
}

type projectFields struct {
	Name         string
	Version      string
	Description  string
	ProjectType  string
	Visibility   string
	State        string
	BusinessUnit string
}

// projectSetCommand 는 지정한 플래그만 PATCH 본문에 담는다.
func projectSetCommand(app *cli) *cobra.Command {
	var f projectFields
	cmd := &cobra.Command{
		Use:   "set <project-id>",
		Short: "update selected fields of a project",
		Example: `  sw360ctl project set 376576 --state ACTIVE --visibility EVERYONE
  sw360ctl project set 376576 --description ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := app.credential()
			if err != nil {
				return err
			}
			patch := sw360.NewProjectPatch()
			fs := cmd.Flags()
			for flag, set := range map[string]func(string) *sw360.ProjectPatch{
				"name":          patch.Name,
				"version":       patch.Version,
				"description":   patch.Description,
				"project-type":  patch.ProjectType,
				"visibility":    patch.Visibility,
				"state":         patch.State,
				"business-unit": patch.BusinessUnit,
			} {
				if fs.Changed(flag) {
					v, _ := fs.GetString(flag)
					set(v)
				}
			}
			if patch.IsEmpty() {
				return errors.New("nothing to update: pass at least one field flag")
			}

			project, err := app.client.PatchProject(cmd.Context(), cred, args[0], patch)
			if err != nil {
				if errors.Is(err, sw360.ErrUnauthenticated) {
					return fmt.Errorf("SW360 rejected the access token: %w", err)
				}
				return fmt.Errorf("update project %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated project %s %s (%s)\n", project.Name, project.Version, project.Key())
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.Name, "name", "", "project name")
	fs.StringVar(&f.Version, "version", "", "project version")
	fs.StringVar(&f.Description, "description", "", "description")
	fs.StringVar(&f.ProjectType, "project-type", "", "CUSTOMER, INTERNAL, PRODUCT, SERVICE or INNER_SOURCE")
	fs.StringVar(&f.Visibility, "visibility", "", "PRIVATE, ME_AND_MODERATORS, BUISNESSUNIT_AND_MODERATORS or EVERYONE")
	fs.StringVar(&f.State, "state", "", "ACTIVE, PHASE_OUT or UNKNOWN")
	fs.StringVar(&f.BusinessUnit, "business-unit", "", "owning group")
	return cmd
}
