package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tradeboard/pkg/metrics"
)

type queryStartKey struct{}
type querySQLKey struct{}

// QueryTracer 查询监控 Tracer：所有查询进延迟直方图，超过阈值的另记慢查询日志
type QueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration // 慢查询阈值，默认 100ms
}

func NewQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *QueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &QueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now())
	// pgx v5 的 TraceQueryEndData 不带 SQL，先存进 context
	ctx = context.WithValue(ctx, querySQLKey{}, data.SQL)
	return ctx
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	duration := time.Since(start)

	sql, _ := ctx.Value(querySQLKey{}).(string)
	metrics.RecordDBQueryDuration(sqlOperation(sql), duration)

	if duration > t.slowThreshold {
		// 截断 SQL，避免日志过长
		truncated := sql
		if len(truncated) > 200 {
			truncated = truncated[:200] + "..."
		}
		t.logger.Warn("slow-query",
			zap.String("sql", truncated),
			zap.Duration("took", duration),
			zap.String("command_tag", data.CommandTag.String()),
		)
	}
}

// sqlOperation 取 SQL 首个关键字作为 operation 标签，避免高基数
func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
