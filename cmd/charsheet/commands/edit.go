package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"charsmith/pkg/schema"
	"charsmith/pkg/utils"
)

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored character as JSON",
		Args:  cobra.NoArgs,
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), utils.PrettyJSON(s.slot.Value()))
			return nil
		}),
	}
}

func newSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one field and save",
		Long: `Change one field and save. Fields use their JSON names; attributes and
aspects take a dotted entry (attributes.wit, aspects.Ember). Lists take
comma separated values. An empty value clears an attribute or aspect.`,
		Example: `  charsheet set name "Wren"
  charsheet set attributes.wit 2
  charsheet set traits "Stubborn, Patient"`,
		Args: cobra.ExactArgs(2),
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			_, err := s.slot.Update(cmd.Context(), func(c schema.Character) (schema.Character, error) {
				return c.Set(args[0], args[1])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		}),
	}
}

func newAdjustCmd(opts *options) *cobra.Command {
	var floor int
	cmd := &cobra.Command{
		Use:   "adjust <hits|fatigue|comeback> <delta>",
		Short: "Add to or subtract from a tracker",
		Example: `  charsheet adjust hits -2
  charsheet adjust comeback 1`,
		Args: cobra.ExactArgs(2),
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("delta must be a whole number: %w", err)
			}
			t := schema.Tracker(args[0])
			c, err := s.slot.Update(cmd.Context(), func(c schema.Character) (schema.Character, error) {
				return c.Adjust(t, delta, floor)
			})
			if err != nil {
				return err
			}
			v, err := c.Tracker(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t, v)
			return nil
		}),
	}
	cmd.Flags().IntVar(&floor, "min", 0, "lowest value the tracker may reach")
	return cmd
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the stored character with a blank sheet",
		Args:  cobra.NoArgs,
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			if err := s.slot.Save(cmd.Context(), schema.New()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "character reset")
			return nil
		}),
	}
}
