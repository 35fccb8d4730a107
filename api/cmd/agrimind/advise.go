package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"agrimind/api/internal/advisory"
	"agrimind/api/internal/config"
)

var adviseEngine string

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Run one advisory flow and print the result as JSON",
}

var (
	fertDefaults = advisory.DefaultFertilizerRequest()
	fertReq      advisory.FertilizerRequest
	fertYield    float64
)

var adviseFertilizerCmd = &cobra.Command{
	Use:   "fertilizer",
	Short: "Fertilizer recommendation from NPK, crop and soil pH",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := fertReq
		if cmd.Flags().Changed("yield") {
			y := fertYield
			req.HistoricalYield = &y
		}
		return advise(cmd, advisory.FlowFertilizer, func(ctx context.Context, inv *advisory.Invoker) (any, error) {
			return inv.Fertilizer(ctx, req)
		})
	},
}

var (
	irrReq  advisory.IrrigationRequest
	irrLast string
)

var adviseIrrigationCmd = &cobra.Command{
	Use:   "irrigation",
	Short: "Irrigation decision from soil moisture, forecast, crop and last irrigation",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := irrReq
		last, err := advisory.ParseWhen(irrLast, time.Now())
		if err != nil {
			return fmt.Errorf("--last: %w", err)
		}
		req.PreviousIrrigation = last
		return advise(cmd, advisory.FlowIrrigation, func(ctx context.Context, inv *advisory.Invoker) (any, error) {
			return inv.Irrigation(ctx, req)
		})
	},
}

func init() {
	adviseCmd.PersistentFlags().StringVarP(&adviseEngine, "engine", "e", "", "Engine to use (gpt|gemini); default from config")

	f := adviseFertilizerCmd.Flags()
	f.Float64Var(&fertReq.NPK.Nitrogen, "nitrogen", fertDefaults.NPK.Nitrogen, "Soil nitrogen")
	f.Float64Var(&fertReq.NPK.Phosphorus, "phosphorus", fertDefaults.NPK.Phosphorus, "Soil phosphorus")
	f.Float64Var(&fertReq.NPK.Potassium, "potassium", fertDefaults.NPK.Potassium, "Soil potassium")
	f.StringVar(&fertReq.CropType, "crop", fertDefaults.CropType, "Crop type")
	f.Float64Var(&fertReq.SoilPH, "ph", fertDefaults.SoilPH, "Soil pH (0-14)")
	f.Float64Var(&fertYield, "yield", 0, "Historical yield (optional)")
	f.StringVar(&fertReq.WeatherConditions, "weather", "", "Current weather conditions (optional)")

	irrDefaults := advisory.DefaultIrrigationRequest(time.Now())
	i := adviseIrrigationCmd.Flags()
	i.Float64Var(&irrReq.SoilMoisturePercent, "moisture", irrDefaults.SoilMoisturePercent, "Soil moisture percent (0-100)")
	i.StringVar(&irrReq.WeatherForecast, "forecast", irrDefaults.WeatherForecast, "Weather forecast")
	i.StringVar(&irrReq.CropType, "crop", irrDefaults.CropType, "Crop type")
	i.StringVar(&irrLast, "last", "72h", "Last irrigation: RFC 3339 time, date, or duration ago")

	adviseCmd.AddCommand(adviseFertilizerCmd)
	adviseCmd.AddCommand(adviseIrrigationCmd)
}

// withEngine makes --engine the default so that the configured default does
// not need a key of its own.
func withEngine(c *config.Config, engine string) *config.Config {
	if engine == "" {
		return c
	}
	cp := *c
	cp.Engine = engine
	return &cp
}

func advise(cmd *cobra.Command, flow string, run func(context.Context, *advisory.Invoker) (any, error)) error {
	engs, err := newEngines(withEngine(cfg, adviseEngine), nil, logger)
	if err != nil {
		return err
	}
	p, err := engs.Get(adviseEngine)
	if err != nil {
		return err
	}
	inv := advisory.NewInvoker(p,
		advisory.WithLogger(logger),
		advisory.WithTimeout(cfg.GetRequestTimeout()))

	out, err := run(cmd.Context(), inv)
	if err != nil {
		if errors.Is(err, advisory.ErrInvalidRequest) {
			return fmt.Errorf("invalid request: %w", advisory.FieldErrors(err))
		}
		return errors.New(advisory.UserMessage(flow))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
