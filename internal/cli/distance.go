package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"flyto/internal/geo"
)

func newDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance LAT1 LON1 LAT2 LON2",
		Short: "Print the great-circle distance between two points in meters",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [4]float64
			for i, a := range args {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid coordinate %q", a)
				}
				v[i] = f
			}
			a := geo.GeoPoint{Lat: v[0], Lon: v[1]}
			b := geo.GeoPoint{Lat: v[2], Lon: v[3]}
			for _, p := range []geo.GeoPoint{a, b} {
				if err := p.Validate(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f\n", geo.DistanceMeters(a, b))
			return nil
		},
	}
}
