package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/repoqa/repoqa/internal/index"
)

var indexBranch string

var indexCmd = &cobra.Command{
	Use:   "index <repository-url>",
	Short: "Index a repository and exit",
	Long: `Clones the repository, catalogs its files, and exits once indexing
completes. Progress is logged to stderr. The resulting index is what serve
and mcp answer questions against.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexBranch, "branch", "", "Branch to index (default branch when empty)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	taskID, err := a.indexer.StartIndexing(cmd.Context(), index.Request{
		RepositoryURL: args[0],
		Branch:        indexBranch,
	})
	if err != nil {
		return err
	}

	// Poll until the background task settles.
	lastMessage := ""
	for {
		status, err := a.indexer.Status(taskID)
		if err != nil {
			return err
		}
		if status.Message != lastMessage {
			log.Printf("[%3.0f%%] %s", status.Progress, status.Message)
			lastMessage = status.Message
		}

		switch status.Status {
		case index.TaskCompleted:
			fmt.Printf("Indexed %d files from %s\n", status.FilesProcessed, args[0])
			return nil
		case index.TaskFailed:
			return errors.New(status.Error)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
