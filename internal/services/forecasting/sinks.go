package forecasting

import (
	"context"

	"candlecast/internal/domain/forecast"
)

type repositorySink struct {
	name string
	repo forecast.Repository
}

// RepositorySink stores forecasts through a forecast.Repository
func RepositorySink(name string, repo forecast.Repository) Sink {
	return &repositorySink{name: name, repo: repo}
}

func (s *repositorySink) Name() string { return s.name }

func (s *repositorySink) Write(ctx context.Context, run forecast.Run, points []forecast.Point) error {
	return s.repo.SaveForecast(ctx, run, points)
}

type publisherSink struct {
	name string
	pub  forecast.Publisher
}

// PublisherSink announces forecasts through a forecast.Publisher
func PublisherSink(name string, pub forecast.Publisher) Sink {
	return &publisherSink{name: name, pub: pub}
}

func (s *publisherSink) Name() string { return s.name }

func (s *publisherSink) Write(ctx context.Context, run forecast.Run, points []forecast.Point) error {
	return s.pub.PublishForecast(ctx, run, points)
}
