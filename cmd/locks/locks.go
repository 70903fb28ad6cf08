// Package locks implements the lock inspection subcommand.
package locks

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/imagelock"
)

// Command creates the locks subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var releaseHolder string

	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Show live image locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocks(settings, releaseHolder)
		},
	}

	cmd.Flags().StringVar(&releaseHolder, "release-all", "", "Release every lock held by the given session id")
	return cmd
}

func runLocks(settings *conf.Settings, releaseHolder string) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return err
	}
	defer ds.Close()

	manager := imagelock.NewManager(settings, ds)

	if releaseHolder != "" {
		count, err := manager.ReleaseAll(releaseHolder)
		if err != nil {
			return err
		}
		fmt.Printf("Released %d locks held by %s.\n", count, releaseHolder)
		return nil
	}

	locked, err := manager.Locked()
	if err != nil {
		return err
	}
	if len(locked) == 0 {
		fmt.Println("No live locks.")
		return nil
	}

	filenames := make([]string, 0, len(locked))
	for f := range locked {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Image", "Held by"})
	for _, f := range filenames {
		tw.AppendRow(table.Row{f, locked[f]})
	}
	fmt.Println(tw.Render())
	return nil
}
