package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources/legacydb"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources/liftcontrol"
)

func (a *app) newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert source results into canonical documents",
		Long: `Fetches results from a source and writes canonical documents. Nothing is
written to the results database; run "osl validate" and "osl import" on the
output.`,
	}
	cmd.AddCommand(a.newConvertLiftControlCmd())
	cmd.AddCommand(a.newConvertLegacyDBCmd())
	cmd.AddCommand(a.newConvertFileCmd())
	return cmd
}

func (a *app) liftControl() (*liftcontrol.Transformer, error) {
	reg, err := liftcontrol.LoadRegistry(a.cfg.LiftControlRegistry)
	if err != nil {
		return nil, err
	}
	client := liftcontrol.NewClient(a.cfg.LiftControlBaseURL, a.cfg.HTTPTimeout, liftcontrol.WithLogger(a.log))
	return liftcontrol.New(reg, client, liftcontrol.WithTransformerLogger(a.log)), nil
}

func (a *app) newConvertLiftControlCmd() *cobra.Command {
	var (
		competition string
		outDir      string
		list        bool
	)
	cmd := &cobra.Command{
		Use:   "liftcontrol",
		Short: "Convert a registered LiftControl competition",
		Long: `Fetches every session of a registered competition and writes one document
per session into --output as <session>.json, or to stdout when no directory is
given. --list prints the registered competition ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.liftControl()
			if err != nil {
				return err
			}
			if list {
				for _, id := range t.Registry().IDs() {
					fmt.Fprintln(a.stdout, id)
				}
				return nil
			}
			if competition == "" {
				return fmt.Errorf("--competition is required unless --list is set")
			}

			comp, err := t.Registry().Lookup(competition)
			if err != nil {
				return err
			}
			docs, err := t.PullCompetition(cmd.Context(), competition)
			if err != nil {
				return err
			}
			for i, doc := range docs {
				if err := a.writeDocument(outDir, comp.Sessions[i], doc); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&competition, "competition", "", "registered competition id or alias")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory for the converted documents")
	cmd.Flags().BoolVar(&list, "list", false, "list registered competitions")
	return cmd
}

func (a *app) newConvertLegacyDBCmd() *cobra.Command {
	var (
		meet   string
		outDir string
		dsn    string
	)
	cmd := &cobra.Command{
		Use:   "legacydb",
		Short: "Convert a meet from the legacy MySQL results database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.MySQLDSN
			}
			if dsn == "" {
				return fmt.Errorf("--mysql-dsn or MYSQL_DSN must be set")
			}

			ctx := cmd.Context()
			mdb, err := legacydb.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer mdb.Close()

			doc, err := sources.Pull(ctx, legacydb.New(mdb, legacydb.WithLogger(a.log)), meet)
			if err != nil {
				return err
			}
			return a.writeDocument(outDir, "meet-"+meet, doc)
		},
	}
	cmd.Flags().StringVar(&meet, "meet", "", "meet id")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory for the converted document")
	cmd.Flags().StringVar(&dsn, "mysql-dsn", "", "legacy database DSN (overrides MYSQL_DSN)")
	_ = cmd.MarkFlagRequired("meet")
	return cmd
}

func (a *app) newConvertFileCmd() *cobra.Command {
	var (
		source string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "file PAYLOAD",
		Short: "Convert a raw payload saved from a source",
		Long:  "Converts a payload captured earlier (for example a LiftControl board response) without fetching anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := a.liftControl()
			if err != nil {
				return err
			}
			reg := sources.NewRegistry(lc, legacydb.New(nil, legacydb.WithLogger(a.log)))
			t, err := reg.Get(source)
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(reg.Names(), ", "))
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := convertRaw(cmd.Context(), t, raw)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			return a.writeDocument(outDir, name, doc)
		},
	}
	cmd.Flags().StringVar(&source, "source", liftcontrol.Name, "source the payload came from")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory for the converted document")
	return cmd
}

func convertRaw(ctx context.Context, t sources.Transformer, raw []byte) (*canonical.Document, error) {
	doc, err := t.Convert(ctx, raw)
	if err != nil {
		return nil, sources.Wrap(t.Name(), err)
	}
	return doc, nil
}

// writeDocument writes doc to dir/name.json, or stdout when dir is empty.
func (a *app) writeDocument(dir, name string, doc *canonical.Document) error {
	if dir == "" {
		return canonical.Encode(a.stdout, doc)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name+".json")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := canonical.Encode(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.Info("document written", zap.String("path", path))
	return nil
}
