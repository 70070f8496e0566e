package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/logger"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	args := m.Called(ctx, aws.StringValue(uploadContainer.Bucket), aws.StringValue(uploadContainer.Key))
	return args.Error(0)
}

func (m *mockS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	content, _ := args.Get(0).([]byte)
	return content, args.Error(1)
}

func (m *mockS3Client) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func TestAttachmentArchive_Archive(t *testing.T) {
	// Arrange
	client := &mockS3Client{}
	client.On("Upload", mock.Anything, "proposal-attachments", mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, "-quote.pdf")
	})).Return(nil)
	client.On("Upload", mock.Anything, "proposal-attachments", mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, "-specs.xlsx")
	})).Return(errors.New("bucket unavailable"))

	archive := NewAttachmentArchive(NewStorageService(client, "proposal-attachments"), testLogger())

	// Act
	list := archive.Archive(context.Background(), "rfp1", "vnd1", []dto.InboundAttachment{
		{Filename: "quote.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
		{Filename: "specs.xlsx", ContentType: "application/vnd.ms-excel", Content: []byte("xx")},
	})

	// Assert
	assert.Len(t, list, 2)
	assert.True(t, strings.HasPrefix(list[0].StorageKey, "proposals/rfp1/vnd1/att_"))
	assert.Equal(t, 8, list[0].Size)
	assert.Empty(t, list[1].StorageKey)
	assert.Equal(t, "specs.xlsx", list[1].Filename)
	client.AssertNumberOfCalls(t, "Upload", 2)
}

func TestAttachmentArchive_Disabled(t *testing.T) {
	archive := NewAttachmentArchive(nil, testLogger())

	list := archive.Archive(context.Background(), "rfp1", "vnd1", []dto.InboundAttachment{
		{Filename: "quote.pdf", ContentType: "application/pdf", Content: []byte("abc")},
	})

	assert.False(t, archive.Enabled())
	assert.Len(t, list, 1)
	assert.Empty(t, list[0].StorageKey)
}

func TestAttachmentKey(t *testing.T) {
	key := AttachmentKey("r", "v", "../../etc/pass wd.pdf", "application/pdf")
	assert.True(t, strings.HasPrefix(key, "proposals/r/v/att_"))
	assert.True(t, strings.HasSuffix(key, "-pass_wd.pdf"))
	assert.True(t, strings.HasSuffix(AttachmentKey("r", "v", "", ""), "-attachment"))
	assert.True(t, strings.HasSuffix(AttachmentKey("r", "v", "quote", "application/octet-stream; name=quote"), "-quote.bin"))
	assert.True(t, strings.HasSuffix(AttachmentKey("r", "v", "", "application/pdf"), "-attachment.pdf"))
}

func TestObjectStorageService_Download(t *testing.T) {
	client := &mockS3Client{}
	client.On("Download", mock.Anything, "bucket", "k").Return([]byte("data"), nil)

	content, err := NewStorageService(client, "bucket").Download(context.Background(), "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("data"), content)
}
