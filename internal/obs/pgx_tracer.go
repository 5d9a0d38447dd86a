package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxTracedStatement = 300

type pgxSpanKey struct{}

// PGXTracer hooks pgx's QueryTracer interface and emits one span per
// statement, named after the SQL verb so pricing reads and order writes are
// distinguishable in traces.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	verb := sqlVerb(data.SQL)
	name := "pgx.query"
	if verb != "" {
		name = "pgx." + strings.ToLower(verb)
	}

	ctx, span := otel.Tracer("db.pgx").Start(ctx, name)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", clipStatement(data.SQL)),
	}
	if verb != "" {
		attrs = append(attrs, attribute.String("db.operation", verb))
	}
	span.SetAttributes(attrs...)
	return context.WithValue(ctx, pgxSpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(pgxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
	}
	span.End()
}

func sqlVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func clipStatement(sql string) string {
	s := strings.TrimSpace(sql)
	if len(s) > maxTracedStatement {
		return s[:maxTracedStatement] + "..."
	}
	return s
}
