package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/teranos/nats-geyser-runner/internal/cache"
	"github.com/teranos/nats-geyser-runner/internal/conn"
)

func boolParser(raw *string) (bool, error) {
	if raw == nil {
		return false, nil
	}
	return *raw == "true", nil
}

// Seed scenario 4: with t1 over quota and t2 not, a single checker pass
// shuts down only t1's sessions; t2 is untouched.
func TestCheckerShutsDownOnlyOverQuotaTenants(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	period := time.Now().UTC().Format(periodLayout)
	mr.Set("quota:"+period+":t1", "true")
	mr.Set("quota:"+period+":t2", "false")

	manager := conn.NewManager()
	t1 := manager.RegisterTeam("t1")
	t2 := manager.RegisterTeam("t2")
	defer t1.Release()
	defer t2.Release()

	quotaCache := cache.New(client, time.Minute, time.Minute, "quota", boolParser)

	checker := NewChecker(Config{
		Manager: manager,
		Cache:   quotaCache,
		Metrics: NewMetrics(prometheus.NewRegistry()),
	})

	checker.runOnce(context.Background())

	select {
	case <-t1.Done():
	default:
		t.Fatal("t1 should have been shut down for exceeding quota")
	}

	select {
	case <-t2.Done():
		t.Fatal("t2 should not have been shut down")
	default:
	}

	// The map entry itself is untouched by ShutdownClient.
	active := manager.ListActiveTeams()
	if len(active) != 2 {
		t.Fatalf("active teams = %v, want both still registered until token release", active)
	}
}

func TestChunkStrings(t *testing.T) {
	got := chunkStrings([]string{"a", "b", "c", "d", "e"}, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if len(got) != len(want) {
		t.Fatalf("chunkStrings = %v, want %v", got, want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("chunk %d = %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("chunk %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}
