// Package commands implements the charsheet CLI: a terminal stand-in for the
// character builder that keeps one character in storage and edits it in place.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"charsmith/pkg/schema"
	"charsmith/pkg/share"
	"charsmith/pkg/store"
)

var versionString = "dev"

// options shared by every subcommand.
type options struct {
	storeURL  string
	key       string
	serverURL string
	verbose   bool

	// clipboard defaults to the controlling terminal.
	clipboard share.Clipboard
}

func SetVersionInfo(version, commit string) {
	versionString = fmt.Sprintf("%s (commit: %s)", version, commit)
}

// Execute runs the CLI against the process arguments.
func Execute() error {
	root := newRootCmd(&options{})
	if err := root.Execute(); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "charsheet",
		Short: "Edit and share a character sheet from the terminal",
		Long: `charsheet keeps a character in local storage (or redis) and saves it after
every change. Share links open the same character in the web builder.`,
		Version:       versionString,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeURL, "store", envOr("CHARSHEET_STORE", "file://charsheet"), "storage url: memory://, redis://host/db, file:///dir or a directory")
	flags.StringVar(&opts.key, "key", envOr("CHARSHEET_KEY", "draft"), "name of the stored character")
	flags.StringVar(&opts.serverURL, "server", envOr("CHARSMITH_URL", "http://localhost:8080"), "charsmith server for share links and uploads")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newShowCmd(opts),
		newSetCmd(opts),
		newAdjustCmd(opts),
		newResetCmd(opts),
		newShareCmd(opts),
		newImportCmd(opts),
		newUploadCmd(opts),
	)
	return root
}

// session is the loaded character slot for one command run.
type session struct {
	slot    *store.Slot[schema.Character]
	storage store.Storage
}

func (o *options) open(ctx context.Context) (*session, error) {
	storage, err := store.Open(o.storeURL)
	if err != nil {
		return nil, err
	}
	slot := store.NewSlot(storage, "character:"+o.key, schema.New(), schema.Validate)
	slot.Load(ctx)
	log.Debug("character loaded", "store", o.storeURL, "key", slot.Key())
	return &session{slot: slot, storage: storage}, nil
}

func (s *session) Close() error {
	if c, ok := s.storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (o *options) withSession(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		s, err := o.open(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}
