package main

import (
	"encoding/json"
	"fmt"

	"auto_spec_builder/attachments"
	"auto_spec_builder/store"

	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete attachment files no specification references",
	RunE:  runReap,
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectOwner int64

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

func init() {
	projectCreateCmd.Flags().Int64Var(&projectOwner, "user", 1, "owning user id")
	projectCmd.AddCommand(projectCreateCmd)
	rootCmd.AddCommand(reapCmd)
	rootCmd.AddCommand(projectCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	grace, err := cfg.Reaper.Grace()
	if err != nil {
		return err
	}
	st, err := store.Open(cmd.Context(), cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	files, err := attachments.NewFileStore(cfg.UploadDir, logger)
	if err != nil {
		return err
	}

	removed, err := attachments.NewReaper(files, st, grace, logger).RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned file(s)\n", removed)
	return nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cmd.Context(), cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.CreateProject(cmd.Context(), projectOwner, args[0])
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(p)
}
