package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/botdesk/botdesk/internal/client/api"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

func TestCompute(t *testing.T) {
	bots := make([]api.Chatbot, 7)
	for i := range bots {
		bots[i].ID = fmt.Sprint(i)
		bots[i].ChatEnabled = i%2 == 0
		bots[i].UploadedDocuments = make([]api.DocumentMetadata, i)
	}

	s := Compute(bots, 10)
	assert.Equal(t, 7, s.TotalChatbots)
	assert.Equal(t, 4, s.EnabledChatbots)
	assert.Equal(t, 21, s.TotalDocuments)
	assert.Equal(t, 10, s.ChatbotsLimit)
	assert.Len(t, s.Recent, RecentCount)
	assert.Equal(t, "0", s.Recent[0].ID)

	empty := Compute(nil, 1)
	assert.Zero(t, empty.TotalChatbots)
	assert.Empty(t, empty.Recent)
}

func TestComputeOrganizations(t *testing.T) {
	s := ComputeOrganizations([]api.Organization{{Active: true}, {Active: false}, {Active: true}})
	assert.Equal(t, OrganizationStats{Total: 3, Active: 2, Inactive: 1}, s)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23*time.Hour + 59*time.Minute, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.ago), now))
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "0 B", FormatSize(-5))
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
	assert.Equal(t, "2.0 MiB", FormatSize(2*1024*1024))
}

func TestLatencies(t *testing.T) {
	l := NewLatencies(10)
	assert.Zero(t, l.Percentile(0.5))
	assert.Zero(t, l.Mean())
	assert.Zero(t, l.Max())

	for i := 1; i <= 10; i++ {
		l.Record(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 10, l.Count())
	assert.Equal(t, 6*time.Millisecond, l.Percentile(0.5))
	assert.Equal(t, 10*time.Millisecond, l.Percentile(1))
	assert.Equal(t, 5500*time.Microsecond, l.Mean())

	// Full: the two oldest samples are evicted.
	l.Record(100 * time.Millisecond)
	assert.Equal(t, 9, l.Count())
	assert.Equal(t, 100*time.Millisecond, l.Max())
}

func TestCallRecorder(t *testing.T) {
	r := NewCallRecorder()
	r.Observe(api.CallInfo{Status: 200, Duration: 10 * time.Millisecond})
	r.Observe(api.CallInfo{Status: 200, Duration: 20 * time.Millisecond})
	r.Observe(api.CallInfo{Status: 404, Duration: 5 * time.Millisecond, Err: errors.New("not found")})
	r.Observe(api.CallInfo{Duration: 90 * time.Second, Err: fmt.Errorf("POST /api/chat: %w", apperrors.ErrRequestTimeout)})

	s := r.Snapshot()
	assert.EqualValues(t, 4, s.TotalCalls)
	assert.EqualValues(t, 2, s.FailedCalls)
	assert.EqualValues(t, 1, s.TimedOut)
	assert.Equal(t, map[int]int64{200: 2, 404: 1, 0: 1}, s.ByStatus)
	assert.Equal(t, 90000.0, s.MaxLatencyMS)
	assert.False(t, s.Since.IsZero())
}
