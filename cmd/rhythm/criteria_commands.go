package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rhythm/internal/library"
)

func newCriteriaCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Manage the faceted criteria store",
	}
	cmd.AddCommand(newCriteriaRebuildCommand(cmdCtx))
	cmd.AddCommand(newCriteriaShowCommand(cmdCtx))
	return cmd
}

func newCriteriaRebuildCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild CriteriaDB.json from the main store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			store := library.NewStore(cfg.MainStorePath(), cfg.CriteriaStorePath(), logger)
			criteria, err := store.RebuildCriteria()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt: %d genres, %d moods, %d instruments, %d tempo bands\n",
				len(criteria.Genre), len(criteria.Mood), len(criteria.Instrument), len(criteria.TempoBands))
			return nil
		},
	}
}

func newCriteriaShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current facet sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			store := library.NewStore(cfg.MainStorePath(), cfg.CriteriaStorePath(), logger)
			criteria, err := store.LoadCriteria()
			if err != nil {
				return err
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			writer.AppendHeader(table.Row{"Facet", "Values"})
			rows := []struct {
				name   string
				values []string
			}{
				{"genre", criteria.Genre},
				{"mood", criteria.Mood},
				{"instrument", criteria.Instrument},
				{"vocals", criteria.Vocals},
				{"theme", criteria.Theme},
				{"tempo_bands", criteria.TempoBands},
				{"keys", criteria.Keys},
				{"artists", criteria.Artists},
				{"electronic_elements", criteria.ElectronicElements},
			}
			for _, row := range rows {
				writer.AppendRow(table.Row{row.name, strings.Join(row.values, ", ")})
			}
			writer.Render()
			return nil
		},
	}
}
