package repository

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/linksight/gateway/internal/repository")
