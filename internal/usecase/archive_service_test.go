package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		subject string
		season  int
		episode int
		want    string
	}{
		{"12345", 0, 0, "payloads/12345/s0e0.json"},
		{"1396", 2, 5, "payloads/1396/s2e5.json"},
	}
	for _, tt := range tests {
		if got := ArchiveKey(tt.subject, tt.season, tt.episode); got != tt.want {
			t.Errorf("ArchiveKey(%q, %d, %d) = %q, want %q", tt.subject, tt.season, tt.episode, got, tt.want)
		}
	}
}

func TestArchiveService_Store(t *testing.T) {
	var gotKey, gotBody, gotType string
	storage := &mockObjectStorage{
		uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
			b, _ := io.ReadAll(reader)
			gotKey, gotBody, gotType = key, string(b), contentType
			return nil
		},
	}
	svc := NewArchiveService(storage, DefaultArchiveServiceConfig())

	res := &model.Resolution{SubjectID: "12345", Payload: []byte(`{"code":0}`)}
	if err := svc.Store(context.Background(), res, 1, 2); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if gotKey != "payloads/12345/s1e2.json" {
		t.Errorf("key = %q", gotKey)
	}
	if gotBody != `{"code":0}` {
		t.Errorf("body = %q", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
}

func TestArchiveService_Store_UploadError(t *testing.T) {
	storage := &mockObjectStorage{
		uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
			return errors.New("minio: unreachable")
		},
	}
	svc := NewArchiveService(storage, DefaultArchiveServiceConfig())

	err := svc.Store(context.Background(), &model.Resolution{SubjectID: "1", Payload: []byte(`{}`)}, 0, 0)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiveService_DownloadURL(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		season  int
		exists  bool
		wantURL string
		wantErr error
	}{
		{name: "archived", subject: "12345", exists: true, wantURL: "http://minio/payloads/12345/s0e0.json?sig"},
		{name: "not archived", subject: "12345", exists: false, wantErr: repository.ErrObjectNotFound},
		{name: "non numeric subject", subject: "abc", wantErr: ErrInvalidSubjectID},
		{name: "negative season", subject: "12345", season: -1, wantErr: model.ErrInvalidEpisode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotExpiry time.Duration
			storage := &mockObjectStorage{
				existsFn: func(ctx context.Context, key string) (bool, error) {
					return tt.exists, nil
				},
				generatePresignedDownloadURLFn: func(ctx context.Context, key string, expiry time.Duration) (string, error) {
					gotExpiry = expiry
					return "http://minio/" + key + "?sig", nil
				},
			}
			svc := NewArchiveService(storage, DefaultArchiveServiceConfig())

			got, err := svc.DownloadURL(context.Background(), tt.subject, tt.season, 0)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DownloadURL() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DownloadURL failed: %v", err)
			}
			if got != tt.wantURL {
				t.Errorf("DownloadURL() = %q, want %q", got, tt.wantURL)
			}
			if gotExpiry != 15*time.Minute {
				t.Errorf("expiry = %v, want 15m", gotExpiry)
			}
		})
	}
}
