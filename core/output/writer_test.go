package output_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/subdigest/core/output"
)

func TestWriter_Archive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, err := output.New(dir)
	require.NoError(t, err)

	path, err := w.Archive(context.Background(), "digest-20261019-073000", []byte("<p >hi</p>"), ".html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "digest-20261019-073000.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<p >hi</p>", string(data))
}

func TestWriter_ArchiveSanitizesName(t *testing.T) {
	w, err := output.New(t.TempDir())
	require.NoError(t, err)

	path, err := w.Archive(context.Background(), "../escape me", []byte("x"), ".md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.OutputDir, "___escape_me.md"), path)
}

func TestWriter_ArchiveCanceled(t *testing.T) {
	w, err := output.New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Archive(ctx, "digest", nil, ".html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, time.October, 19, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	assert.Equal(t, "digest-20261019-073000", output.FileName("", ts))
	assert.Equal(t, "stocks_daily-20261019-073000", output.FileName("stocks daily", ts))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	client := &fakeS3{}
	a := output.NewS3WithClient(client, "reports", "/digests/")

	loc, err := a.Archive(context.Background(), "digest-20261019-073000", []byte(`{"count":1}`), ".json")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/digests/digest-20261019-073000.json", loc)
	require.NotNil(t, client.input)
	assert.Equal(t, "reports", *client.input.Bucket)
	assert.Equal(t, "digests/digest-20261019-073000.json", *client.input.Key)
	assert.Equal(t, "application/json", *client.input.ContentType)
	assert.Equal(t, `{"count":1}`, string(client.body))
}

func TestS3Archiver_Error(t *testing.T) {
	a := output.NewS3WithClient(&fakeS3{err: errors.New("access denied")}, "reports", "")

	_, err := a.Archive(context.Background(), "digest", []byte("x"), ".html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading digest.html to bucket reports")
}

func TestNewS3_RequiresBucketAndRegion(t *testing.T) {
	_, err := output.NewS3(context.Background(), output.S3Config{Bucket: "b"})
	assert.ErrorIs(t, err, output.ErrInvalidS3Config)
}
