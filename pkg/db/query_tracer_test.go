package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tradeboard/pkg/metrics"
)

func TestQueryTracer_ObservesEveryQuery(t *testing.T) {
	tracer := NewQueryTracer(zap.NewNop(), time.Second)

	before := testutil.CollectAndCount(metrics.DBQueryDuration)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "SELECT id FROM projects WHERE id = $1",
	})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Greater(t, testutil.CollectAndCount(metrics.DBQueryDuration), before,
		"each traced query must land in the duration histogram")
}

func TestQueryTracer_EndWithoutStartIsIgnored(t *testing.T) {
	tracer := NewQueryTracer(zap.NewNop(), time.Second)
	// 不经过 TraceQueryStart 的 context 不应 panic，也不应上报
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

func TestSQLOperation(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                         "select",
		"  update projects set status=$1":  "update",
		"INSERT INTO applications VALUES ": "insert",
		"":                                 "unknown",
	}
	for sql, want := range cases {
		assert.Equal(t, want, sqlOperation(sql))
	}
}
