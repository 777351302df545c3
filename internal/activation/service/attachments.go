package service

import (
	"context"
	"path"

	"activation_backend/internal/activation/repository"
	"activation_backend/internal/activation/transport"
	"activation_backend/platform/apperr"
	"activation_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CreateAttachment registers a meeting attachment and returns a presigned upload URL.
func (s *Service) CreateAttachment(ctx context.Context, meetingID, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.CreateAttachmentRequest) (*transport.AttachmentResponse, error) {
	if s.storage == nil {
		return nil, apperr.Unavailable("attachment storage is not configured")
	}
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	meeting, err := s.ensureMeetingAccess(ctx, actor, meetingID, tenantID)
	if err != nil {
		return nil, err
	}

	fileName := path.Base(sanitize.Text(req.FileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		return nil, apperr.Validation("fileName is required")
	}

	folder := path.Join(tenantID.String(), "meetings", meeting.ID.String())
	uploadURL, fileKey, err := s.storage.PresignUpload(ctx, folder, fileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, err
	}

	attachment := &repository.Attachment{
		ID:             uuid.New(),
		OrganizationID: tenantID,
		MeetingID:      meeting.ID,
		FileKey:        fileKey,
		FileName:       fileName,
		ContentType:    req.ContentType,
		SizeBytes:      req.SizeBytes,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateAttachment(ctx, attachment); err != nil {
		return nil, err
	}

	resp := attachmentResponse(attachment)
	resp.UploadURL = uploadURL
	return &resp, nil
}

// ListAttachments lists a meeting's attachments with presigned download URLs.
// Without storage configured the list is returned without URLs.
func (s *Service) ListAttachments(ctx context.Context, meetingID, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID) (*transport.AttachmentListResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if _, err := s.ensureMeetingAccess(ctx, actor, meetingID, tenantID); err != nil {
		return nil, err
	}

	items, err := s.store.ListAttachments(ctx, meetingID, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]transport.AttachmentResponse, len(items))
	for i := range items {
		resp[i] = attachmentResponse(&items[i])
		if s.storage == nil {
			continue
		}
		url, err := s.storage.PresignDownload(ctx, items[i].FileKey)
		if err != nil {
			s.log.BestEffortFailure(ctx, "presign_attachment_download", err, "file_key", items[i].FileKey)
			continue
		}
		resp[i].DownloadURL = url
	}
	return &transport.AttachmentListResponse{Items: resp}, nil
}

func attachmentResponse(a *repository.Attachment) transport.AttachmentResponse {
	return transport.AttachmentResponse{
		ID:          a.ID,
		MeetingID:   a.MeetingID,
		FileKey:     a.FileKey,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}
