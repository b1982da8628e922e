package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/services"
)

// NewGroupsCmd creates the groups command group.
func NewGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage study groups",
		Long:    "List, search, create, and join study groups.",
	}

	byID := []*cobra.Command{
		newGroupsShowCmd(),
		newGroupsUpdateCmd(),
		newGroupsJoinCmd(),
		newGroupsLeaveCmd(),
		newGroupsMembersCmd(),
		newGroupsDeleteCmd(),
	}
	completeGroupArgs(byID...)

	cmd.AddCommand(newGroupsListCmd(), newGroupsSearchCmd(), newGroupsCreateCmd())
	cmd.AddCommand(byID...)

	return cmd
}

func newGroupsListCmd() *cobra.Command {
	var joined, owned bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			filter := services.GroupsAll
			switch {
			case joined && owned:
				return output.ErrUsage("--joined and --owned are mutually exclusive")
			case joined:
				filter = services.GroupsJoined
			case owned:
				filter = services.GroupsOwned
			}

			groups, err := app.Services.Groups.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if filter == services.GroupsAll {
				_ = groupCache(app).ReplaceGroups(groups)
			}

			return app.Present(groups, app.Presenter.Groups(groups),
				output.WithSummary(pluralize(len(groups), "group", "groups")),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "show",
					Cmd:         "studysync groups show <id>",
					Description: "Show group details",
				}),
			)
		},
	}

	cmd.Flags().BoolVar(&joined, "joined", false, "Only groups you are a member of")
	cmd.Flags().BoolVar(&owned, "owned", false, "Only groups you own")

	return cmd
}

func newGroupsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search public groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			groups, err := app.Services.Groups.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return app.Present(groups, app.Presenter.Groups(groups),
				output.WithSummary(fmt.Sprintf("%s matching %q", pluralize(len(groups), "group", "groups"), args[0])),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "join",
					Cmd:         "studysync groups join <id>",
					Description: "Join a group",
				}),
			)
		},
	}
}

func newGroupsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show group details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			group, err := app.Services.Groups.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			row := app.Presenter.Groups([]models.Group{*group})[0]
			if group.Description != "" {
				row["description"] = group.Description
			}
			return app.Present(group, row,
				output.WithSummary(group.Name),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "chat",
						Cmd:         "studysync chat history " + group.ID.String(),
						Description: "Read the group chat",
					},
					output.Breadcrumb{
						Action:      "files",
						Cmd:         "studysync files list " + group.ID.String(),
						Description: "List shared files",
					},
				),
			)
		},
	}
}

// groupInputFlags binds the flags shared by create and update. private is
// only applied when the flag was set.
func groupInputFlags(cmd *cobra.Command, in *models.GroupInput, private *bool) {
	cmd.Flags().StringVar(&in.Name, "name", "", "Group name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Group description")
	cmd.Flags().StringVar(&in.Subject, "subject", "", "Subject, e.g. Calculus")
	cmd.Flags().BoolVar(private, "private", false, "Require an invitation to join")
}

func newGroupsCreateCmd() *cobra.Command {
	var in models.GroupInput
	var private bool

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a group",
		Long: `Create a study group. You become its owner.

Examples:
  studysync groups create "Linear Algebra" --subject math
  studysync groups create --name "Thesis club" --private`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				in.Name = args[0]
			}
			if cmd.Flags().Changed("private") {
				in.IsPrivate = &private
			}

			group, err := app.Services.Groups.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			_ = groupCache(app).AddGroup(*group)

			return app.Present(group, app.Presenter.Groups([]models.Group{*group})[0],
				output.WithSummary("Created group "+group.Name),
			)
		},
	}

	groupInputFlags(cmd, &in, &private)
	return cmd
}

func newGroupsUpdateCmd() *cobra.Command {
	var in models.GroupInput
	var private bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a group you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("private") {
				in.IsPrivate = &private
			}
			if in == (models.GroupInput{}) {
				return output.ErrUsageHint("Nothing to update", "Pass at least one of --name, --description, --subject, --private")
			}

			group, err := app.Services.Groups.Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			_ = groupCache(app).AddGroup(*group)

			return app.Present(group, app.Presenter.Groups([]models.Group{*group})[0],
				output.WithSummary("Updated group "+group.Name),
			)
		},
	}

	groupInputFlags(cmd, &in, &private)
	return cmd
}

func newGroupsJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id>",
		Short: "Join a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := app.Services.Groups.Join(cmd.Context(), args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": args[0], "status": "joined"},
				output.WithSummary("Joined group "+args[0]),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "chat",
					Cmd:         "studysync chat history " + args[0],
					Description: "Read the group chat",
				}),
			)
		},
	}
}

func newGroupsLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <id>",
		Short: "Leave a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := app.Services.Groups.Leave(cmd.Context(), args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": args[0], "status": "left"},
				output.WithSummary("Left group "+args[0]))
		},
	}
}

func newGroupsMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <id>",
		Short: "List group members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			members, err := app.Services.Groups.Members(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return app.Present(members, app.Presenter.Members(members),
				output.WithSummary(pluralize(len(members), "member", "members")))
		},
	}
}

func newGroupsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a group you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := confirmDestructive(app, yes, "group "+args[0]); err != nil {
				return err
			}
			if err := app.Services.Groups.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_ = groupCache(app).RemoveGroup(args[0])

			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted group "+args[0]))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
