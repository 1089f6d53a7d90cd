package httpserver

import (
	"time"

	"ratehub/internal/application"
	"ratehub/internal/domain"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type currencyResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type rateResponse struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}

type conversionResponse struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Result    string    `json:"result"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}

type refreshResponse struct {
	UpdateID          string                     `json:"update_id"`
	SuccessfulSources int                        `json:"successful_sources"`
	TotalRates        int                        `json:"total_rates"`
	Pairs             int                        `json:"pairs"`
	HistoryFailed     int                        `json:"history_failed"`
	Sources           []application.SourceReport `json:"sources"`
}

type convertQuery struct {
	From   string `validate:"required,alphanum,min=2,max=5"`
	To     string `validate:"required,alphanum,min=2,max=5"`
	Amount string `validate:"required,numeric"`
}

type historyQuery struct {
	Limit int `validate:"min=1,max=1000"`
}

func toCurrencies(cs []domain.Currency) []currencyResponse {
	out := make([]currencyResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, currencyResponse{Code: c.Code, Name: c.Name, Kind: string(c.Kind), Detail: c.Detail})
	}
	return out
}

func toRate(r domain.ResolvedRate) rateResponse {
	return rateResponse{From: r.From, To: r.To, Rate: r.Rate, UpdatedAt: r.UpdatedAt, Stale: r.Stale}
}

func toRefresh(r application.UpdateReport) refreshResponse {
	return refreshResponse{
		UpdateID:          r.ID,
		SuccessfulSources: r.SuccessfulSources,
		TotalRates:        r.TotalRates,
		Pairs:             r.Pairs,
		HistoryFailed:     r.HistoryFailed,
		Sources:           r.Sources,
	}
}
