package airquality_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerohealth/aerohealth/internal/airquality"
)

// scriptedAdapter returns a fixed result and counts calls.
type scriptedAdapter struct {
	name   string
	result airquality.Result
	calls  atomic.Int32
	block  bool
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) FetchCurrent(ctx context.Context, _ string) airquality.Result {
	a.calls.Add(1)
	if a.block {
		<-ctx.Done()
		return airquality.TransientError(ctx.Err())
	}
	return a.result
}

// panickyAdapter panics on every call.
type panickyAdapter struct{}

func (panickyAdapter) Name() string { return "panicky" }

func (panickyAdapter) FetchCurrent(context.Context, string) airquality.Result {
	panic("boom")
}

type scriptedHistory struct {
	samples  []airquality.HistoricalSample
	err      error
	lastDays int
}

func (h *scriptedHistory) FetchHourlyHistory(_ context.Context, _ string, days int) ([]airquality.HistoricalSample, error) {
	h.lastDays = days
	return h.samples, h.err
}

func testReading(source string) *airquality.Reading {
	r := &airquality.Reading{
		City:     "Accra",
		Country:  "Ghana",
		Location: "Accra, Greater Accra",
		Source:   source,
	}
	r.SetPollutant(airquality.ParameterPM25, airquality.Float64Ptr(18.5), "µg/m³")
	return r
}

func TestService_FirstAdapterWins(t *testing.T) {
	first := &scriptedAdapter{name: "first", result: airquality.Found(testReading("first"))}
	second := &scriptedAdapter{name: "second", result: airquality.Found(testReading("second"))}

	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{first, second},
		Logger:   zerolog.Nop(),
	})

	reading, err := svc.FetchCurrent(context.Background(), "Accra")
	require.NoError(t, err)
	assert.Equal(t, "first", reading.Source)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load(), "lower-priority adapter must be skipped")
}

func TestService_FallsThroughTransientError(t *testing.T) {
	failing := &scriptedAdapter{name: "failing", result: airquality.TransientError(errors.New("upstream down"))}
	declining := &scriptedAdapter{name: "declining", result: airquality.NotServed()}
	fallback := &scriptedAdapter{name: "fallback", result: airquality.Found(testReading("fallback"))}

	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{failing, declining, fallback},
		Logger:   zerolog.Nop(),
	})

	reading, err := svc.FetchCurrent(context.Background(), "Accra")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reading.Source)
	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, int32(1), declining.calls.Load())
}

func TestService_RecoversPanickingAdapter(t *testing.T) {
	fallback := &scriptedAdapter{name: "fallback", result: airquality.Found(testReading("fallback"))}

	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{panickyAdapter{}, fallback},
		Logger:   zerolog.Nop(),
	})

	reading, err := svc.FetchCurrent(context.Background(), "Accra")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reading.Source)
}

func TestService_NoDataWhenChainExhausted(t *testing.T) {
	a := &scriptedAdapter{name: "a", result: airquality.NotServed()}
	b := &scriptedAdapter{name: "b", result: airquality.TransientError(errors.New("down"))}

	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{a, b},
		Logger:   zerolog.Nop(),
	})

	_, err := svc.FetchCurrent(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, airquality.ErrNoData))
}

func TestService_AdapterTimeoutBoundsChain(t *testing.T) {
	slow := &scriptedAdapter{name: "slow", block: true}
	fallback := &scriptedAdapter{name: "fallback", result: airquality.Found(testReading("fallback"))}

	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters:       []airquality.Adapter{slow, fallback},
		Logger:         zerolog.Nop(),
		AdapterTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	reading, err := svc.FetchCurrent(context.Background(), "Accra")
	require.NoError(t, err)
	assert.Equal(t, "fallback", reading.Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_FetchHistoryClampsAndTruncates(t *testing.T) {
	samples := make([]airquality.HistoricalSample, 200)
	for i := range samples {
		samples[i] = airquality.HistoricalSample{
			Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			AQI:  50,
		}
	}
	history := &scriptedHistory{samples: samples}

	svc := airquality.NewService(airquality.ServiceConfig{
		History: history,
		Logger:  zerolog.Nop(),
	})

	got := svc.FetchHistory(context.Background(), "Accra", 7)
	assert.Len(t, got, 168, "7 days must cap at 168 hourly samples")
	// Truncation keeps the most recent samples.
	assert.Equal(t, samples[len(samples)-1].Date, got[len(got)-1].Date)

	svc.FetchHistory(context.Background(), "Accra", 90)
	assert.Equal(t, airquality.MaxHistoryDays, history.lastDays)

	svc.FetchHistory(context.Background(), "Accra", 0)
	assert.Equal(t, airquality.DefaultHistoryDays, history.lastDays)
}

func TestService_FetchHistorySoftFails(t *testing.T) {
	history := &scriptedHistory{err: errors.New("upstream down")}

	svc := airquality.NewService(airquality.ServiceConfig{
		History: history,
		Logger:  zerolog.Nop(),
	})

	got := svc.FetchHistory(context.Background(), "Accra", 7)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_FetchHistoryWithoutProvider(t *testing.T) {
	svc := airquality.NewService(airquality.ServiceConfig{Logger: zerolog.Nop()})
	assert.Empty(t, svc.FetchHistory(context.Background(), "Accra", 7))
}

func TestMinuteSeed_StableWithinMinute(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 30, 5, 0, time.UTC)
	later := base.Add(40 * time.Second) // same calendar minute

	assert.Equal(t,
		airquality.MinuteSeed(5.6037, -0.187, base),
		airquality.MinuteSeed(5.6037, -0.187, later))

	nextMinute := base.Add(time.Minute)
	assert.NotEqual(t,
		airquality.MinuteSeed(5.6037, -0.187, base),
		airquality.MinuteSeed(5.6037, -0.187, nextMinute))

	assert.NotEqual(t,
		airquality.MinuteSeed(5.6037, -0.187, base),
		airquality.MinuteSeed(6.6885, -1.6244, base))
}

func TestReading_SetPollutantReplaces(t *testing.T) {
	r := &airquality.Reading{}
	r.SetPollutant(airquality.ParameterPM25, airquality.Float64Ptr(10), "µg/m³")
	r.SetPollutant(airquality.ParameterPM25, airquality.Float64Ptr(20), "µg/m³")

	require.Len(t, r.Pollutants, 1)
	pm25, ok := r.PM25()
	require.True(t, ok)
	assert.Equal(t, 20.0, pm25)
}

func TestReading_PollutantMissing(t *testing.T) {
	r := &airquality.Reading{}
	_, ok := r.Pollutant(airquality.ParameterCO)
	assert.False(t, ok)
	_, ok = r.PM25()
	assert.False(t, ok)

	r.SetPollutant(airquality.ParameterPM25, nil, "µg/m³")
	_, ok = r.PM25()
	assert.False(t, ok, "nil value must not count as a PM2.5 measurement")
}

func ExampleService_FetchCurrent() {
	adapter := &scriptedAdapter{name: "example", result: airquality.Found(testReading("example"))}
	svc := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{adapter},
		Logger:   zerolog.Nop(),
	})

	reading, _ := svc.FetchCurrent(context.Background(), "Accra, Greater Accra")
	fmt.Println(reading.Source)
	// Output: example
}
