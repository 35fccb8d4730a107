package advisory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(err error) []string {
	var out []string
	for _, fe := range FieldErrors(err) {
		out = append(out, fe.Field)
	}
	return out
}

func TestFertilizerRequest_Validate(t *testing.T) {
	valid := func() FertilizerRequest {
		return FertilizerRequest{NPK: NPK{12, 8, 10}, CropType: "corn", SoilPH: 6.5}
	}
	nan := math.NaN()

	tests := []struct {
		name   string
		mutate func(*FertilizerRequest)
		want   []string
	}{
		{"valid", func(*FertilizerRequest) {}, nil},
		{"ph lower bound", func(r *FertilizerRequest) { r.SoilPH = 0 }, nil},
		{"ph upper bound", func(r *FertilizerRequest) { r.SoilPH = 14 }, nil},
		{"ph too high", func(r *FertilizerRequest) { r.SoilPH = 14.1 }, []string{"soilPh"}},
		{"ph negative", func(r *FertilizerRequest) { r.SoilPH = -1 }, []string{"soilPh"}},
		{"ph NaN", func(r *FertilizerRequest) { r.SoilPH = math.NaN() }, []string{"soilPh"}},
		{"negative nitrogen", func(r *FertilizerRequest) { r.NPK.Nitrogen = -0.1 }, []string{"npk.nitrogen"}},
		{"infinite potassium", func(r *FertilizerRequest) { r.NPK.Potassium = math.Inf(1) }, []string{"npk.potassium"}},
		{"blank crop", func(r *FertilizerRequest) { r.CropType = "  " }, []string{"cropType"}},
		{"NaN yield", func(r *FertilizerRequest) { r.HistoricalYield = &nan }, []string{"historicalYield"}},
		{"several", func(r *FertilizerRequest) {
			r.CropType = ""
			r.SoilPH = 20
			r.NPK.Phosphorus = -3
		}, []string{"npk.phosphorus", "cropType", "soilPh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, fields(err))
		})
	}
}

func TestIrrigationRequest_Validate(t *testing.T) {
	valid := func() IrrigationRequest {
		return IrrigationRequest{
			SoilMoisturePercent: 45,
			WeatherForecast:     "Sunny",
			CropType:            "corn",
			PreviousIrrigation:  time.Date(2024, 4, 23, 14, 0, 0, 0, time.UTC),
		}
	}
	tests := []struct {
		name   string
		mutate func(*IrrigationRequest)
		want   []string
	}{
		{"valid", func(*IrrigationRequest) {}, nil},
		{"moisture 0", func(r *IrrigationRequest) { r.SoilMoisturePercent = 0 }, nil},
		{"moisture 100", func(r *IrrigationRequest) { r.SoilMoisturePercent = 100 }, nil},
		{"moisture above 100", func(r *IrrigationRequest) { r.SoilMoisturePercent = 100.5 }, []string{"soilMoisturePercent"}},
		{"moisture negative", func(r *IrrigationRequest) { r.SoilMoisturePercent = -1 }, []string{"soilMoisturePercent"}},
		{"no forecast", func(r *IrrigationRequest) { r.WeatherForecast = "" }, []string{"weatherForecast"}},
		{"no crop", func(r *IrrigationRequest) { r.CropType = "\t" }, []string{"cropType"}},
		{"no timestamp", func(r *IrrigationRequest) { r.PreviousIrrigation = time.Time{} }, []string{"previousIrrigationTimestamp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, fields(err))
		})
	}
}

func TestResponse_Validate(t *testing.T) {
	assert.NoError(t, FertilizerResponse{"a", "b", 0}.Validate())
	assert.NoError(t, FertilizerResponse{"a", "b", 1}.Validate())
	assert.Equal(t, []string{"confidenceScore"}, fields(FertilizerResponse{"a", "b", 1.01}.Validate()))
	assert.Equal(t, []string{"recommendation", "explanation"}, fields(FertilizerResponse{"", " ", 0.5}.Validate()))

	assert.NoError(t, IrrigationResponse{true, 25, "dry"}.Validate())
	assert.NoError(t, IrrigationResponse{false, 0, "rain"}.Validate())
	assert.Equal(t, []string{"irrigationDurationMinutes"}, fields(IrrigationResponse{false, 10, "rain"}.Validate()))
	assert.Equal(t, []string{"irrigationDurationMinutes"}, fields(IrrigationResponse{true, -5, "x"}.Validate()))
	assert.Equal(t, []string{"reason"}, fields(IrrigationResponse{true, 5, ""}.Validate()))
}

func TestDefaults_AreValid(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	assert.NoError(t, DefaultFertilizerRequest().Validate())
	ir := DefaultIrrigationRequest(now)
	assert.NoError(t, ir.Validate())
	assert.True(t, now.Add(-72*time.Hour).Equal(ir.PreviousIrrigation))
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseWhen("2026-02-27T08:00:00Z", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)))

	got, err = ParseWhen("48h", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(-48*time.Hour)))

	got, err = ParseWhen("2026-02-20", now)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Day())

	_, err = ParseWhen("-1h", now)
	assert.Error(t, err)
	_, err = ParseWhen("last tuesday", now)
	assert.Error(t, err)
}
