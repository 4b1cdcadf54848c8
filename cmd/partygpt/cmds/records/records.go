package records

import (
	"os"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/partygpt/pkg/records"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect conversations saved by the reference backend",
}

func AddToRootCommand(root *cobra.Command) {
	listCmd, err := NewListCommand()
	cobra.CheckErr(err)
	showCmd, err := NewShowCommand()
	cobra.CheckErr(err)
	browseCmd, err := NewBrowseCommand()
	cobra.CheckErr(err)

	cobraListCmd, err := cli.BuildCobraCommand(listCmd)
	cobra.CheckErr(err)
	cobraShowCmd, err := cli.BuildCobraCommand(showCmd)
	cobra.CheckErr(err)
	cobraBrowseCmd, err := cli.BuildCobraCommand(browseCmd)
	cobra.CheckErr(err)

	recordsCmd.AddCommand(cobraListCmd)
	recordsCmd.AddCommand(cobraShowCmd)
	recordsCmd.AddCommand(cobraBrowseCmd)

	root.AddCommand(recordsCmd)
}

const defaultRecordsDB = "partygpt-records.db"

func openStore(path string) (*records.SQLiteStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "expand records db path")
	}
	if _, err := os.Stat(expanded); err != nil {
		return nil, errors.Wrapf(err, "records db %s", expanded)
	}
	dsn, err := records.DSNForFile(expanded)
	if err != nil {
		return nil, err
	}
	return records.NewSQLiteStore(dsn)
}
