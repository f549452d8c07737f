package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/quote"
)

func quoteCmd() *cobra.Command {
	var (
		base    int64
		qty     int
		period  int
		options []string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a marketing package",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := quote.New()
			pkg.SelectPackage(base)
			pkg.Quantity = qty
			pkg.Period = period
			for _, raw := range options {
				opt, err := parseOption(raw)
				if err != nil {
					return err
				}
				pkg.ToggleOption(opt)
			}
			total, err := pkg.Total()
			if err != nil {
				return err
			}
			optionsPrice, err := pkg.OptionsPrice()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "package: %s × %d × %d일\n", format.KRW(pkg.BasePrice), pkg.Quantity, pkg.Period)
			fmt.Fprintf(out, "options: %s\n", format.KRW(optionsPrice))
			fmt.Fprintf(out, "total:   %s\n", format.KRW(total))
			return nil
		},
	}
	cmd.Flags().Int64Var(&base, "base", 0, "package base price in won")
	cmd.Flags().IntVar(&qty, "qty", 1, "package quantity")
	cmd.Flags().IntVar(&period, "period", quote.BasePeriodDays, "campaign length in days")
	cmd.Flags().StringArrayVar(&options, "option", nil, "add-on as id=price (repeatable)")
	return cmd
}

func parseOption(raw string) (quote.Option, error) {
	id, price, ok := strings.Cut(raw, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return quote.Option{}, fmt.Errorf("option %q: expected id=price", raw)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(price), 10, 64)
	if err != nil {
		return quote.Option{}, fmt.Errorf("option %q: %w", raw, err)
	}
	return quote.Option{ID: id, Price: value}, nil
}

func catalogCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the resolved catalog as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			data, err := cat.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "catalog file (default: embedded catalog)")
	return cmd
}
