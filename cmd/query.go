package main

import (
	"fmt"
	"io"

	"go-neows/internal/domain"
	"go-neows/internal/services"
	"go-neows/internal/validation"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newFeedCmd() *cobra.Command {
	var (
		start, end                       string
		page, limit                      string
		hazard, distance, size, velocity string
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print one filtered page of the NeoWs feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}

			raw := map[string]string{
				validation.ParamStartDate: start,
				validation.ParamEndDate:   end,
				validation.ParamPage:      page,
				validation.ParamLimit:     limit,
				validation.ParamHazard:    hazard,
				validation.ParamDistance:  distance,
				validation.ParamSize:      size,
				validation.ParamVelocity:  velocity,
			}
			q, err := a.validator.Feed(raw)
			if err != nil {
				return err
			}

			feed, err := a.gateway.GetFeed(cmd.Context(), q.StartDate, q.EndDate)
			if err != nil {
				return err
			}
			p := services.AssembleFeed(feed, q)
			return printJSON(cmd.OutOrStdout(), domain.FeedResponse{
				Links:            feed.Links,
				ElementCount:     feed.ElementCount,
				NearEarthObjects: map[string][]domain.NearEarthObject{q.StartDate: p.Objects},
				Pagination:       p.Pagination,
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD), at most 7 days after start")
	cmd.Flags().StringVar(&page, "page", "", "page number (default 1)")
	cmd.Flags().StringVar(&limit, "limit", "", "objects per page, 1-100 (default 9)")
	cmd.Flags().StringVar(&hazard, "hazard", "", "all, hazardous or safe")
	cmd.Flags().StringVar(&distance, "distance", "", "all, close, medium or far")
	cmd.Flags().StringVar(&size, "size", "", "all, small, medium or large")
	cmd.Flags().StringVar(&velocity, "velocity", "", "all, slow, medium or fast")

	return cmd
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <asteroid-id>",
		Short: "Print a single Near-Earth Object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			id, err := a.validator.AsteroidID(args[0])
			if err != nil {
				return err
			}
			neo, err := a.gateway.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), neo)
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <asteroid-id>",
		Short: "Generate and print an analysis of a Near-Earth Object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			id, err := a.validator.AsteroidID(args[0])
			if err != nil {
				return err
			}
			neo, err := a.gateway.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			analysis, err := a.narrator.Analyze(cmd.Context(), neo)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), domain.AnalysisResponse{Asteroid: *neo, Analysis: analysis})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
