package service

import (
	"context"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/repository"
)

// ProfileService 资料修改，仅限本人
type ProfileService interface {
	UpdateImages(ctx context.Context, viewerID string, avatarURL, bannerURL *string) (*model.Profile, error)
}

type profileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) UpdateImages(ctx context.Context, viewerID string, avatarURL, bannerURL *string) (*model.Profile, error) {
	if viewerID == "" {
		return nil, apperr.ErrAuthRequired
	}
	if avatarURL == nil && bannerURL == nil {
		return nil, apperr.Malformed("nothing to update")
	}
	if err := s.profiles.UpdateImages(ctx, viewerID, avatarURL, bannerURL); err != nil {
		return nil, storeErr("update profile images", "profile", viewerID, err)
	}
	p, err := s.profiles.GetByID(ctx, viewerID)
	if err != nil {
		return nil, storeErr("reload profile", "profile", viewerID, err)
	}
	return p, nil
}
