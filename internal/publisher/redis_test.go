package publisher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

func testRecords() []*domain.ChannelRecord {
	row := &domain.ChannelRow{
		Chassis: 1, Connector: 2, Channel: 5, Signal: 3,
		Use: true, EGU: "V", Desc: "pump pressure",
	}
	return []*domain.ChannelRecord{
		row.Record(domain.DefaultPrefix, "FOO"),
		row.Record(domain.DefaultPrefix, "BAR"),
	}
}

func TestRedisPublishRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewRedis(client, "cccr:loads", zap.NewNop())
	require.NoError(t, pub.PublishRecords(context.Background(), testRecords()))

	raw, err := mr.Get("FDAS:01:SA:DB2:Ch05:Sig03:FOO")
	require.NoError(t, err)

	var fields domain.ChannelFields
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.Equal(t, "V", fields.EGU)
	assert.Equal(t, "pump pressure", fields.Desc)
	assert.Equal(t, 0.0, fields.ESLO)

	assert.True(t, mr.Exists("FDAS:01:SA:DB2:Ch05:Sig03:BAR"))
}

func TestRedisPublishScalar(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewRedis(client, "", zap.NewNop())
	require.NoError(t, pub.PublishScalar(context.Background(), "FDAS:CCCR:STS", "Success"))

	val, err := mr.Get("FDAS:CCCR:STS")
	require.NoError(t, err)
	assert.Equal(t, "Success", val)
}

func TestRedisPublishLoadEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	pub := NewRedis(client, "cccr:loads", zap.NewNop())
	require.NoError(t, pub.PublishLoadEvent(ctx, &domain.LoadRecord{
		LoadID:   "abc",
		Filename: "channels.csv",
		Status:   domain.LoadStatusSuccess,
	}))

	msgs, err := client.XRange(ctx, "cccr:loads", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var rec domain.LoadRecord
	data, ok := msgs[0].Values["data"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(data), &rec))
	assert.Equal(t, "abc", rec.LoadID)
	assert.Equal(t, domain.LoadStatusSuccess, rec.Status)
}

func TestRedisPublishLoadEventNoStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// 未配置事件流时静默跳过
	pub := NewRedis(client, "", zap.NewNop())
	assert.NoError(t, pub.PublishLoadEvent(context.Background(), &domain.LoadRecord{LoadID: "x"}))
}
