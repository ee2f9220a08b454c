package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name               string `yaml:"name"`
	TechnicalName      string `yaml:"technicalName"`
	Company            string `yaml:"company"`
	Category           string `yaml:"category"`
	Quantity           int64  `yaml:"quantity"`
	QuantityAlert      *int64 `yaml:"quantityAlert"`
	BuyingPrice        string `yaml:"buyingPrice"`
	SellingPriceCash   string `yaml:"sellingPriceCash"`
	SellingPriceUdhaar string `yaml:"sellingPriceUdhaar"`
}

func parseSeed(r io.Reader) ([]catalog.ProductInput, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	out := make([]catalog.ProductInput, 0, len(file.Products))
	for i, p := range file.Products {
		prices := make([]decimal.Decimal, 3)
		for j, raw := range []string{p.BuyingPrice, p.SellingPriceCash, p.SellingPriceUdhaar} {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			d, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("products[%d] %s: price %q: %w", i, p.Name, raw, err)
			}
			prices[j] = d
		}
		qty := p.Quantity
		out = append(out, catalog.ProductInput{
			Name:               p.Name,
			TechnicalName:      p.TechnicalName,
			Company:            p.Company,
			Category:           catalog.Category(p.Category),
			Quantity:           &qty,
			QuantityAlert:      p.QuantityAlert,
			BuyingPrice:        prices[0],
			SellingPriceCash:   prices[1],
			SellingPriceUdhaar: prices[2],
		})
	}
	return out, nil
}

func newSeedCmd(e *env) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog products from a YAML file, skipping names already present",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			inputs, err := parseSeed(f)
			if err != nil {
				return err
			}

			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			svc := catalog.NewService(catalog.NewRepository(pool), e.logger, nil)

			existing, err := svc.List(cmd.Context(), catalog.ListFilter{})
			if err != nil {
				return err
			}
			seen := make(map[string]struct{}, len(existing))
			for _, p := range existing {
				seen[strings.ToLower(p.Name)] = struct{}{}
			}
			created := 0
			for _, in := range inputs {
				if _, ok := seen[strings.ToLower(strings.TrimSpace(in.Name))]; ok {
					continue
				}
				if _, err := svc.Create(cmd.Context(), in); err != nil {
					return fmt.Errorf("seed %s: %w", in.Name, err)
				}
				created++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d products\n", created, len(inputs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "deploy/seed/catalog.yaml", "seed file")
	return cmd
}
