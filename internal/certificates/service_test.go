package certificates

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"networkers-home/certificate-portal/certificate-portal-backend/internal/templates"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/storage"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CertificateIDExists(ctx context.Context, certificateID string) (bool, error) {
	args := m.Called(ctx, certificateID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Insert(ctx context.Context, cert *Certificate) error {
	args := m.Called(ctx, cert)
	return args.Error(0)
}

func (m *mockRepository) FindByCertificateID(ctx context.Context, certificateID string) (*Certificate, error) {
	args := m.Called(ctx, certificateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Certificate), args.Error(1)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Certificate), args.Error(1)
}

func (m *mockRepository) Revoke(ctx context.Context, certificateID string, revokedBy *uuid.UUID, reason string) (*Certificate, error) {
	args := m.Called(ctx, certificateID, revokedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Certificate), args.Error(1)
}

func (m *mockRepository) Restore(ctx context.Context, certificateID string) (*Certificate, error) {
	args := m.Called(ctx, certificateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Certificate), args.Error(1)
}

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) RenderDocument(ctx context.Context, markup, stylesheet string) ([]byte, error) {
	args := m.Called(ctx, markup, stylesheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockRaster struct {
	mock.Mock
}

func (m *mockRaster) Rasterize(ctx context.Context, document []byte, encoding string, dpi int) ([]byte, error) {
	args := m.Called(ctx, document, encoding, dpi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func testTemplate() *templates.Template {
	return &templates.Template{
		ID:          uuid.New(),
		Name:        "Classic Blue",
		HTMLContent: `<html><body><div class="student-name">{{student_name}}</div></body></html>`,
	}
}

func validInput() CertificateInput {
	return CertificateInput{
		StudentName:      "Ada Lovelace",
		CourseName:       "CCNA",
		IssueDate:        "2026-08-31",
		IssuingAuthority: "NetworkersHome",
	}
}

func newTestService(t *testing.T, repo Repository, docs *mockDocuments, raster *mockRaster) Service {
	svc, _ := newTestServiceWithBackend(t, repo, docs, raster)
	return svc
}

func newTestServiceWithBackend(t *testing.T, repo Repository, docs *mockDocuments, raster *mockRaster) (Service, storage.Backend) {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return NewService(repo, NewRenderer(), docs, raster, backend, NewAllocator("NH"), zap.NewNop(), 300), backend
}

func TestGenerateOnePDF(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc := newTestService(t, repo, docs, new(mockRaster))

	repo.On("CertificateIDExists", mock.Anything, mock.Anything).Return(false, nil)
	docs.On("RenderDocument", mock.Anything, mock.MatchedBy(func(markup string) bool {
		return strings.Contains(markup, "Ada Lovelace")
	}), "").Return([]byte("%PDF-1.7 test"), nil)

	var inserted *Certificate
	repo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*Certificate)
	}).Return(nil)

	resp, err := svc.GenerateOne(context.Background(), testTemplate(), validInput(), nil, nil)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Regexp(t, `^NH-\d{4}-[0-9A-Z]{5,8}$`, resp.CertificateID)
	require.Contains(t, resp.DownloadURLs, "pdf")

	require.NotNil(t, inserted)
	assert.Equal(t, StatusGenerated, inserted.Status)
	assert.NotNil(t, inserted.PDFPath)
	assert.Nil(t, inserted.PNGPath)
	assert.Equal(t, "Ada Lovelace", inserted.DataField("student_name"))
	repo.AssertExpectations(t)
}

func TestGenerateOneRasterFormats(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	raster := new(mockRaster)
	svc := newTestService(t, repo, docs, raster)

	repo.On("CertificateIDExists", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	docs.On("RenderDocument", mock.Anything, mock.Anything, mock.Anything).Return([]byte("doc"), nil).Once()
	raster.On("Rasterize", mock.Anything, []byte("doc"), "png", 300).Return([]byte("png-bytes"), nil).Once()
	raster.On("Rasterize", mock.Anything, []byte("doc"), "jpg", 300).Return([]byte("jpg-bytes"), nil).Once()

	resp, err := svc.GenerateOne(context.Background(), testTemplate(), validInput(),
		[]OutputFormat{FormatPDF, FormatPNG, FormatJPG}, nil)
	require.NoError(t, err)

	assert.Len(t, resp.DownloadURLs, 3)
	docs.AssertExpectations(t)
	raster.AssertExpectations(t)
}

func TestGenerateOneValidationRejectedBeforePipeline(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc := newTestService(t, repo, docs, new(mockRaster))

	input := validInput()
	input.IssueDate = "31/08/2026"

	_, err := svc.GenerateOne(context.Background(), testTemplate(), input, nil, nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "issue_date", validationErr.Field)
	docs.AssertNotCalled(t, "RenderDocument", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestGenerateOneDuplicateCallerID(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(t, repo, new(mockDocuments), new(mockRaster))

	input := validInput()
	input.CertificateID = "NH-2026-00001"
	repo.On("CertificateIDExists", mock.Anything, "NH-2026-00001").Return(true, nil)

	_, err := svc.GenerateOne(context.Background(), testTemplate(), input, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateCertificateID)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestGenerateOneInsertLosesDuplicateRace(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc := newTestService(t, repo, docs, new(mockRaster))

	// The pre-check passes; a concurrent writer takes the id before our
	// insert, so the unique constraint fires at persistence time.
	input := validInput()
	input.CertificateID = "NH-2026-00077"
	repo.On("CertificateIDExists", mock.Anything, "NH-2026-00077").Return(false, nil)
	docs.On("RenderDocument", mock.Anything, mock.Anything, mock.Anything).Return([]byte("doc"), nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(ErrDuplicateCertificateID)

	_, err := svc.GenerateOne(context.Background(), testTemplate(), input, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateCertificateID)
	repo.AssertExpectations(t)
}

func TestGenerateOneRenderFailureLeavesNoRecord(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc := newTestService(t, repo, docs, new(mockRaster))

	repo.On("CertificateIDExists", mock.Anything, mock.Anything).Return(false, nil)
	docs.On("RenderDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("chromium crashed"))

	_, err := svc.GenerateOne(context.Background(), testTemplate(), validInput(), nil, nil)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestGenerateBatchIsolatesFailures(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc, backend := newTestServiceWithBackend(t, repo, docs, new(mockRaster))

	repo.On("CertificateIDExists", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	docs.On("RenderDocument", mock.Anything, mock.Anything, mock.Anything).Return([]byte("doc"), nil)

	bad := validInput()
	bad.StudentName = ""

	resp, err := svc.GenerateBatch(context.Background(), testTemplate(),
		[]CertificateInput{validInput(), bad, validInput()}, nil, nil)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Successful)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)

	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "UNKNOWN", resp.Results[1].CertificateID)
	assert.Contains(t, resp.Results[1].Error, "student_name")
	assert.True(t, resp.Results[2].Success)

	// Artifacts live on the local backend, so the archive is buildable.
	require.NotNil(t, resp.ZipDownloadURL)
	assert.Contains(t, *resp.ZipDownloadURL, "bulk-certificates-")

	// The archive holds one entry per successful certificate and nothing for
	// the failed row.
	relPath := backend.RelativeFromURL(*resp.ZipDownloadURL)
	data, err := backend.Read(context.Background(), relPath)
	require.NoError(t, err)
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, file := range archive.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{
		resp.Results[0].CertificateID + ".pdf",
		resp.Results[2].CertificateID + ".pdf",
	}, names)
}

func TestGenerateBatchAllFailedSkipsArchive(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(t, repo, new(mockDocuments), new(mockRaster))

	bad := validInput()
	bad.IssueDate = ""

	resp, err := svc.GenerateBatch(context.Background(), testTemplate(),
		[]CertificateInput{bad}, nil, nil)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, 1, resp.Failed)
	assert.Nil(t, resp.ZipDownloadURL)
}

func TestPreviewInjectsOverlayWithoutPersisting(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(t, repo, new(mockDocuments), new(mockRaster))

	markup, err := svc.Preview(context.Background(), testTemplate(),
		PartialRecord{"student_name": "Ada"},
		[]ElementPosition{{ElementID: "student-name", X: 40, Y: 60}}, nil)
	require.NoError(t, err)

	assert.Contains(t, markup, "Ada")
	assert.Contains(t, markup, `data-editable="student-name"`)
	assert.Contains(t, markup, `left: 40px !important`)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestFinalizePrintsOverlaidMarkup(t *testing.T) {
	repo := new(mockRepository)
	docs := new(mockDocuments)
	svc := newTestService(t, repo, docs, new(mockRaster))

	repo.On("CertificateIDExists", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	var printed string
	docs.On("RenderDocument", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { printed = args.String(1) }).
		Return([]byte("doc"), nil)

	record := PartialRecord{
		"student_name":      "Ada Lovelace",
		"course_name":       "CCNA",
		"issue_date":        "2026-08-31",
		"issuing_authority": "NetworkersHome",
	}
	resp, err := svc.Finalize(context.Background(), testTemplate(), record,
		[]ElementPosition{{ElementID: "student-name", X: 12, Y: 34}}, nil, nil, nil)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Contains(t, printed, `data-editable="student-name"`)
	assert.Contains(t, printed, `left: 12px !important`)
}

func TestHistoryResolvesDownloadURLs(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(t, repo, new(mockDocuments), new(mockRaster))

	userID := uuid.New()
	pdfPath := "2026/08/31/NH-2026-00042.pdf"
	repo.On("ListByUser", mock.Anything, userID).Return([]Certificate{{
		ID:            uuid.New(),
		CertificateID: "NH-2026-00042",
		Data:          datatypes.JSONMap{"student_name": "Ada", "course_name": "CCNA", "issue_date": "2026-08-31"},
		PDFPath:       &pdfPath,
		Status:        StatusGenerated,
	}}, nil)

	entries, err := svc.History(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ada", entries[0].StudentName)
	assert.Contains(t, entries[0].DownloadURLs["pdf"], "/downloads/2026/08/31/NH-2026-00042.pdf")
}
