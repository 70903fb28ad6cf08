// Package approve implements the auto-approval subcommand that commits the
// rubber-stamp queue.
package approve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/imagelock"
	"github.com/aerolabel/aerolabel-go/internal/observability"
	"github.com/aerolabel/aerolabel-go/internal/review"
)

// Command creates the approve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		filename string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Commit high-confidence predictions as labels",
		Long:  "Commits every prediction in the auto-approvable queue, or a single named image, converting each into a permanent label and archiving its file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprove(settings, filename, dryRun)
		},
	}

	cmd.Flags().StringVar(&filename, "file", "", "Approve only this intake image instead of the whole queue")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be committed without committing")
	return cmd
}

func runApprove(settings *conf.Settings, filename string, dryRun bool) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return err
	}
	defer ds.Close()

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	if err := datastore.LoadReferenceFiles(ds, settings.Intake.DataDir); err != nil {
		return err
	}

	triage := review.NewTriage(settings, ds)
	committer := review.NewCommitter(settings, ds, triage)
	committer.SetMetrics(m.Review)

	locks := imagelock.NewManager(settings, ds)
	locks.SetMetrics(m.Lock)
	holderID := imagelock.NewHolderID()
	defer locks.ReleaseAll(holderID)

	if filename != "" {
		return approveOne(committer, locks, holderID, filename, dryRun)
	}

	queue, err := triage.AutoApprovable()
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		fmt.Println("Nothing to approve.")
		return nil
	}

	if dryRun {
		fmt.Printf("Would commit %d predictions:\n", len(queue))
		for i := range queue {
			fmt.Printf("  %s (%s / %s)\n", queue[i].Filename, queue[i].TypeClass, queue[i].AirlineClass)
		}
		return nil
	}

	// Claim the whole queue first so concurrent reviewers skip these images
	var filenames []string
	for i := range queue {
		acquired, err := locks.Acquire(queue[i].Filename, holderID)
		if err != nil {
			return err
		}
		if !acquired {
			fmt.Printf("Skipping %s, locked by another reviewer.\n", queue[i].Filename)
			continue
		}
		filenames = append(filenames, queue[i].Filename)
	}

	result := committer.BulkCommit(filenames, holderID)
	fmt.Printf("Committed %d labels, %d failed.\n", result.Committed, result.Failed)
	for _, item := range result.Items {
		if item.Err != nil {
			fmt.Printf("  %s: %v\n", item.Filename, item.Err)
		}
	}
	return nil
}

func approveOne(committer *review.Committer, locks *imagelock.Manager, holderID, filename string, dryRun bool) error {
	if dryRun {
		fmt.Printf("Would commit %s.\n", filename)
		return nil
	}
	acquired, err := locks.Acquire(filename, holderID)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%s is locked by another reviewer", filename)
	}

	label, err := committer.Commit((&review.CommitRequest{
		Filename: filename,
		HolderID: holderID,
		Mode:     review.ModeApprove,
	}).UseAllAI())
	if err != nil {
		return err
	}
	fmt.Printf("Committed %s as %s (%s / %s).\n",
		filename, label.FileName, label.TypeID, label.AirlineID)
	return nil
}
