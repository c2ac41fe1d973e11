package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	jaegerconfig "github.com/uber/jaeger-client-go/config"
	jaegerzap "github.com/uber/jaeger-client-go/log/zap"

	"github.com/customeros/mailvector/internal/logger"
)

type JaegerConfig struct {
	ServiceName  string  `env:"JAEGER_SERVICE_NAME" envDefault:"mailvector"`
	Enabled      bool    `env:"JAEGER_ENABLED" envDefault:"true"`
	Endpoint     string  `env:"JAEGER_ENDPOINT"`
	AgentHost    string  `env:"JAEGER_AGENT_HOST" envDefault:"localhost"`
	AgentPort    string  `env:"JAEGER_AGENT_PORT" envDefault:"6831"`
	SamplerType  string  `env:"JAEGER_SAMPLER_TYPE" envDefault:"const"`
	SamplerParam float64 `env:"JAEGER_SAMPLER_PARAM" envDefault:"1"`
	LogSpans     bool    `env:"JAEGER_REPORTER_LOG_SPANS" envDefault:"false"`
}

// NewJaegerTracer builds the tracer for this process. Spans report to the
// collector endpoint when one is configured, otherwise to the local agent.
func NewJaegerTracer(cfg *JaegerConfig, log logger.Logger) (opentracing.Tracer, io.Closer, error) {
	reporter := &jaegerconfig.ReporterConfig{
		LogSpans: cfg.LogSpans,
	}
	if cfg.Endpoint != "" {
		reporter.CollectorEndpoint = cfg.Endpoint
	} else {
		reporter.LocalAgentHostPort = cfg.AgentHost + ":" + cfg.AgentPort
	}

	tracerCfg := jaegerconfig.Configuration{
		ServiceName: cfg.ServiceName,
		Disabled:    !cfg.Enabled,
		Sampler: &jaegerconfig.SamplerConfig{
			Type:  cfg.SamplerType,
			Param: cfg.SamplerParam,
		},
		Reporter: reporter,
	}

	return tracerCfg.NewTracer(jaegerconfig.Logger(jaegerzap.NewLogger(log.Logger())))
}
