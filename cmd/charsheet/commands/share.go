package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"charsmith/pkg/diff"
	"charsmith/pkg/schema"
	"charsmith/pkg/share"
	"charsmith/pkg/upload"
)

func newShareCmd(opts *options) *cobra.Command {
	var copyLink bool
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a link that opens this character in the builder",
		Args:  cobra.NoArgs,
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			out := cmd.OutOrStdout()
			ch := s.slot.Value()

			if !copyLink {
				link, err := share.Link(opts.serverURL, ch)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, link)
				return nil
			}

			cb := opts.clipboard
			if cb == nil {
				cb = share.Terminal{Out: os.Stdout}
			}
			copier := share.NewCopier(cb)
			defer copier.Flag.Stop()

			link, err := copier.CopyLink(cmd.Context(), opts.serverURL, ch)
			if link == "" {
				return err
			}
			fmt.Fprintln(out, link)
			if err != nil {
				return fmt.Errorf("link not copied: %w", err)
			}
			if copier.Flag.On() {
				fmt.Fprintln(out, "Copied!")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&copyLink, "copy", "c", false, "also copy the link to the clipboard")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <link|token>",
		Short: "Replace the stored character with one from a share link",
		Long: `Replace the stored character with one from a share link. The changes are
printed first. A link that cannot be read completely still imports, with the
unreadable parts reset to their defaults.`,
		Args: cobra.ExactArgs(1),
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			out := cmd.OutOrStdout()

			incoming, err := share.FromLink(args[0])
			if err != nil {
				var derr *schema.DecodeError
				if !errors.As(err, &derr) {
					return err
				}
				log.Warn("share link was not fully readable; missing details were reset", "error", err)
			}

			d := diff.Characters(s.slot.Value(), incoming)
			if !d.Changed() {
				fmt.Fprintln(out, "no changes")
				return nil
			}
			d.Print(out)
			if dryRun {
				return nil
			}
			return s.slot.Save(cmd.Context(), incoming)
		}),
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show the changes without saving")
	return cmd
}

func newUploadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>",
		Short: "Upload a portrait and set it as the character's image",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := upload.New(opts.serverURL).Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			log.Info("image uploaded", "id", res.ID)

			if _, err := s.slot.Update(cmd.Context(), func(c schema.Character) (schema.Character, error) {
				return c.Set("imageUrl", res.URL)
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return nil
		}),
	}
}
