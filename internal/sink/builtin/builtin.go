// Package builtin wires every shipped sink into a registry.
package builtin

import (
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/amqpsink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/kafkasink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/logsink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/mqttsink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/natssink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/redissink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/snssink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/sqssink"
)

// Registry returns a registry holding all built-in sinks.
func Registry() *sink.Registry {
	reg := sink.NewRegistry()
	reg.Register(logsink.New, sink.KindLog)
	reg.Register(sqssink.New, sqssink.Kind)
	reg.Register(snssink.New, snssink.Kind)
	reg.Register(amqpsink.New, amqpsink.Kinds...)
	reg.Register(kafkasink.New, kafkasink.Kind)
	reg.Register(natssink.New, natssink.Kind)
	reg.Register(redissink.New, redissink.Kind)
	reg.Register(mqttsink.New, mqttsink.Kind)
	return reg
}
