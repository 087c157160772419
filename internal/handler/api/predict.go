package api

import (
	"math/rand"
	"time"

	"github.com/labstack/echo/v4"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/ratelimit"
	"AxPredict/internal/usecase"
	xhttp "AxPredict/pkg/http"
	applogger "AxPredict/pkg/logger"
)

// Per-IP budget on the predict endpoint.
const (
	rateCapacity  = 20
	ratePerSecond = 10
)

// PredictHandler exposes the prediction API.
type PredictHandler struct {
	predictor *usecase.Predictor
	limiter   *ratelimit.Limiter
	l         *applogger.Logger
}

func NewPredictHandler(predictor *usecase.Predictor, limiter *ratelimit.Limiter, l *applogger.Logger) *PredictHandler {
	return &PredictHandler{predictor: predictor, limiter: limiter, l: l}
}

func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.POST("/batch_predict", h.BatchPredict)
	e.GET("/predict_demo", h.PredictDemo)
}

// Root reports service identity and the supported timeframe set.
func (h *PredictHandler) Root(c echo.Context) error {
	tfs := make([]string, 0, len(domrepo.SupportedTimeframes))
	for _, tf := range domrepo.SupportedTimeframes {
		tfs = append(tfs, string(tf))
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"service":    "axpredict",
		"status":     "ok",
		"timeframes": tfs,
	})
}

// BatchPredict handles POST /batch_predict. Validation rejects the whole
// request before any fetch work; after that, per-timeframe failures degrade
// individual entries only.
func (h *PredictHandler) BatchPredict(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP(), rateCapacity, ratePerSecond) {
		return xhttp.TooManyRequestsResponse(c)
	}

	req := new(models.BatchRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp := h.predictor.BatchPredict(c.Request().Context(), req)
	return xhttp.SuccessResponse(c, resp)
}

// PredictDemo runs the pipeline over a synthetic random walk, exercising the
// client-window path end to end without any upstream dependency.
func (h *PredictHandler) PredictDemo(c echo.Context) error {
	req := &models.BatchRequest{
		Symbol:     "DEMO",
		Timeframes: []string{"1m", "5m", "1h"},
		Candles:    map[string]models.CandleWindow{"1m": demoWindow(600)},
		Limit:      300,
	}
	resp := h.predictor.BatchPredict(c.Request().Context(), req)
	return xhttp.SuccessResponse(c, resp)
}

// demoWindow builds a deterministic-in-shape random walk of n 1m candles
// ending now.
func demoWindow(n int) models.CandleWindow {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now().UTC().Truncate(time.Minute).Add(-time.Duration(n) * time.Minute)

	w := models.CandleWindow{
		Timestamp: make([]string, 0, n),
		Open:      make([]float64, 0, n),
		High:      make([]float64, 0, n),
		Low:       make([]float64, 0, n),
		Close:     make([]float64, 0, n),
		Volume:    make([]float64, 0, n),
	}
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += rng.NormFloat64() * 0.2
		high := open
		if price > high {
			high = price
		}
		low := open
		if price < low {
			low = price
		}
		w.Timestamp = append(w.Timestamp, start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
		w.Open = append(w.Open, open)
		w.High = append(w.High, high+0.05)
		w.Low = append(w.Low, low-0.05)
		w.Close = append(w.Close, price)
		w.Volume = append(w.Volume, float64(rng.Intn(100)))
	}
	return w
}
