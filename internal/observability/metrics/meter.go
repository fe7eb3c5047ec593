// Copyright 2026 The Opendesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter and the authorization counters the
// security core reports on.
type Meter struct {
	meter       metric.Meter
	authDenied  metric.Int64Counter
	rateLimited metric.Int64Counter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	var meter metric.Meter
	if cfg.Enabled {
		meter = otel.Meter(serviceName)
	} else {
		meter = otel.Meter("noop")
	}

	m := &Meter{meter: meter}

	var err error
	m.authDenied, err = m.CreateCounter(
		"auth_denied_total",
		"Requests rejected by the authentication or authorization layer",
	)
	if err != nil {
		return nil, err
	}

	m.rateLimited, err = m.CreateCounter(
		"rate_limited_total",
		"Requests rejected by a rate-limit window",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordAuthDenied counts a 401/403 by rejection code.
func (m *Meter) RecordAuthDenied(ctx context.Context, code string) {
	m.authDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordRateLimited counts a 429 by window name.
func (m *Meter) RecordRateLimited(ctx context.Context, window string) {
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("window", window)))
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}
