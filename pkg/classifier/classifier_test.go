package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReports struct {
	batchTag string
	reports  map[string][]string
	err      error
}

func (f *fakeReports) GetReport(_ context.Context, batchTag, fileName string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}

	if batchTag != f.batchTag {
		return nil, nil
	}

	return f.reports[fileName], nil
}

// metricLines is a report body with user=0.50 sys=0.25 mem=2048
// code=1234 harness=5678 at the fixed offsets.
func metricLines() []string {
	return []string{
		"Elapsed",
		"user",
		"0.50",
		"system",
		"0.25",
		"maxrss",
		"2048",
		"-",
		"-",
		"code size",
		"1234",
		"harness size",
		"5678",
	}
}

func newTestClassifier(reports map[string][]string) *Classifier {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return New(log, &fakeReports{batchTag: "run-1", reports: reports}, "run-1")
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Input
	}{
		{
			name: "path with folder",
			raw:  "  sv/ldv-linux/foo.c\n",
			want: Input{Name: "foo.c", Folder: "ldv-linux"},
		},
		{
			name: "bare name",
			raw:  "foo.c",
			want: Input{Name: "foo.c"},
		},
		{
			name: "empty",
			raw:  "   ",
			want: Input{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInput(tt.raw))
		})
	}
}

func TestClassify_MissingReport(t *testing.T) {
	c := newTestClassifier(map[string][]string{})

	rec, err := c.Classify(context.Background(), "dir/123_4a-foo.c")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClassify_LookupError(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	c := New(log, &fakeReports{err: errors.New("boom")}, "run-1")

	rec, err := c.Classify(context.Background(), "foo.c")
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.NotErrorIs(t, err, ErrMalformedReport)
}

func TestClassify_NormalReport(t *testing.T) {
	name := "linux-4.2-rc1.tar.xz-32_7a-drivers--media--usb--dvb-usb--dvb-usb-dtt200u.ko-entry_point_false-unreach-call.cil.out.c"
	report := append([]string{"SUCCESSFUL HARNESS"}, metricLines()...)

	c := newTestClassifier(map[string][]string{name: report})

	rec, err := c.Classify(context.Background(), "  ldv-linux-4.2-rc1/"+name+"\n")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, &HarnessRecord{
		FileCode:         "32_7a",
		SubsystemPath:    "drivers/media/usb/dvb-usb/dvb-usb-dtt200u.ko",
		ToolchainVersion: "linux-4.2",
		HarnessType:      "entry_point_false-unreach-call",
		FileName:         name,
		RuntimeSeconds:   0.75,
		MemoryKB:         2048,
		CodeFileSize:     1234,
		HarnessFileSize:  5678,
		HarnessSuccess:   OutcomeSucceeded,
	}, rec)
}

func TestClassify_LinkFailure(t *testing.T) {
	report := []string{
		"Command exited with non-zero status 1",
		"error: could not link harness main.o",
		"0.50",
		"garbage",
		"SUCCESSFUL HARNESS",
	}

	c := newTestClassifier(map[string][]string{"foo.c": report})

	rec, err := c.Classify(context.Background(), "foo.c")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, OutcomeLinkFailed, rec.HarnessSuccess)
	assert.Zero(t, rec.RuntimeSeconds)
	assert.Zero(t, rec.MemoryKB)
	assert.Zero(t, rec.CodeFileSize)
	assert.Zero(t, rec.HarnessFileSize)
	assert.Equal(t, Unknown, rec.FileCode)
	assert.Equal(t, Unknown, rec.SubsystemPath)
	assert.Equal(t, Unknown, rec.ToolchainVersion)
	assert.Equal(t, defaultHarnessType, rec.HarnessType)
}

func TestClassify_MalformedReport(t *testing.T) {
	short := metricLines()[:8]

	bad := metricLines()
	bad[offsetMemory] = "lots"

	c := newTestClassifier(map[string][]string{
		"short.c": short,
		"bad.c":   bad,
		"empty.c": {},
	})

	for _, name := range []string{"short.c", "bad.c", "empty.c"} {
		t.Run(name, func(t *testing.T) {
			rec, err := c.Classify(context.Background(), name)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedReport)
			assert.Nil(t, rec)
		})
	}
}

func TestClassify_FileNameFromPathOnly(t *testing.T) {
	c := newTestClassifier(map[string][]string{"foo.c": metricLines()})

	rec, err := c.Classify(context.Background(), "drivers-net/123_4/foo.c")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "foo.c", rec.FileName)
	assert.Equal(t, Unknown, rec.FileCode)
	assert.Equal(t, Unknown, rec.SubsystemPath)
}
