package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hszk-dev/streamresolve/internal/api/handler"
	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

type openServices func(cmd *cobra.Command) (*services, error)

type episodeFlags struct {
	mediaType string
	season    int
	episode   int
}

func (f *episodeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mediaType, "type", "t", "movie", "Media type: movie, series or tv")
	cmd.Flags().IntVar(&f.season, "season", 0, "Season number (series only)")
	cmd.Flags().IntVar(&f.episode, "episode", 0, "Episode number (series only)")
}

func (f *episodeFlags) request(externalID string) (usecase.ResolveRequest, error) {
	mediaType, err := model.ParseMediaType(f.mediaType)
	if err != nil {
		return usecase.ResolveRequest{}, err
	}
	req := usecase.ResolveRequest{
		MediaType:  mediaType,
		ExternalID: externalID,
		Season:     f.season,
		Episode:    f.episode,
	}
	if err := req.Validate(); err != nil {
		return usecase.ResolveRequest{}, err
	}
	return req, nil
}

func newResolveCommand(open openServices) *cobra.Command {
	var flags episodeFlags
	var invalidate bool

	cmd := &cobra.Command{
		Use:   "resolve <tmdb-id>",
		Short: "Resolve a TMDB title and print its download payload",
		Long: `Run the full resolution pipeline for one title and print the result as JSON.

Examples:
  streamresolve resolve 27205
  streamresolve resolve 1399 --type tv --season 1 --episode 3
  streamresolve resolve 27205 --fresh       # drop the cached entry first`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0])
			if err != nil {
				return err
			}

			svc, err := open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx := cmd.Context()
			if invalidate {
				if err := svc.Resolutions.Invalidate(ctx, req); err != nil {
					return fmt.Errorf("invalidate: %w", err)
				}
			}

			out, err := svc.Resolutions.Resolve(ctx, req)
			if err != nil {
				if kind := model.KindOf(err); kind != "" {
					return fmt.Errorf("%s: %w", kind, err)
				}
				return err
			}
			return writeJSON(cmd, handler.NewResolveResponse(out))
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&invalidate, "fresh", false, "Invalidate the cached resolution before resolving")
	return cmd
}
