package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/parceltrack/internal/carrier"
)

func trackCmd(g *globals, registry RegistryFunc) *cobra.Command {
	var postcode string

	c := &cobra.Command{
		Use:   "track <carrier> <number>",
		Short: "Look a parcel up by carrier and tracking number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.lookupContext(cmd)
			defer cancel()

			reg, err := registry(ctx)
			if err != nil {
				return err
			}
			parcel, err := reg.New(args[0], args[1], postcode)
			if err != nil {
				return err
			}
			return describe(ctx, cmd, g, reg, parcel)
		},
	}

	c.Flags().StringVarP(&postcode, "postcode", "p", "", "recipient postcode (GLS shows recipient names with it)")
	return c
}

func barcodeCmd(g *globals, registry RegistryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "barcode <code>",
		Short: "Look a parcel up by the content of its label barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.lookupContext(cmd)
			defer cancel()

			reg, err := registry(ctx)
			if err != nil {
				return err
			}
			parcel, err := reg.FromBarcode(args[0])
			if err != nil {
				return err
			}
			return describe(ctx, cmd, g, reg, parcel)
		},
	}
}

func carriersCmd(g *globals, registry RegistryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "carriers",
		Short: "List supported carriers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd, reg.Carriers())
		},
	}
}

func describe(ctx context.Context, cmd *cobra.Command, g *globals, reg *carrier.Registry, parcel carrier.Parcel) error {
	report, err := reg.Describe(ctx, parcel)
	if err != nil {
		return err
	}
	return g.print(cmd, report)
}
