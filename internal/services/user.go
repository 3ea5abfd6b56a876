package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-backend/internal/clock"
	"social-backend/internal/media"
	"social-backend/internal/models"
	"social-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const suggestedUsersLimit = 4

// UserService handles profiles and the follow graph
type UserService struct {
	users  UserStore
	hasher Hasher
	media  media.Store
	clock  clock.Clock
}

// NewUserService creates a new user service
func NewUserService(users UserStore, hasher Hasher, mediaStore media.Store, clk clock.Clock) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		media:  mediaStore,
		clock:  clk,
	}
}

// UpdateProfileRequest is the payload of POST /api/users/update. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Bio             string `json:"bio"`
	Link            string `json:"link"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ProfileImg      string `json:"profile_img"`
	CoverImg        string `json:"cover_img"`
}

// GetProfile returns the user with the given username
func (s *UserService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ToggleFollow follows targetID, or unfollows it when the caller already
// follows it. It reports whether the caller follows the target afterwards.
func (s *UserService) ToggleFollow(ctx context.Context, callerID, targetID string) (bool, error) {
	if callerID == targetID {
		return false, invalidInput("You can't follow/unfollow yourself")
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound("User not found")
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound("User not found")
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if caller.IsFollowing(targetID) {
		if err := s.users.Unfollow(ctx, callerID, targetID); err != nil {
			return false, err
		}
		log.Info().Str("user_id", callerID).Str("target_id", targetID).Msg("User unfollowed")
		return false, nil
	}

	if err := s.users.Follow(ctx, callerID, targetID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound("User not found")
		}
		return false, err
	}
	log.Info().Str("user_id", callerID).Str("target_id", targetID).Msg("User followed")
	return true, nil
}

// Suggested returns up to four users the caller does not follow yet
func (s *UserService) Suggested(ctx context.Context, callerID string) ([]*models.User, error) {
	users, err := s.users.ListSuggested(ctx, callerID, suggestedUsersLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// UpdateProfile applies req to the caller's profile. A password change needs
// both the current and the new password. Previous images are deleted once
// the record points at their replacements; a failed update removes the new
// uploads instead.
func (s *UserService) UpdateProfile(ctx context.Context, callerID string, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if (req.CurrentPassword == "") != (req.NewPassword == "") {
		return nil, invalidInput("Please provide both current password and new password")
	}
	var newHash string
	if req.CurrentPassword != "" {
		if newHash, err = s.checkPasswordChange(ctx, user.ID, req.CurrentPassword, req.NewPassword); err != nil {
			return nil, err
		}
	}

	if username := strings.TrimSpace(req.Username); username != "" && username != user.Username {
		taken, err := s.users.UsernameExists(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, invalidInput("Username is already taken")
		}
		user.Username = username
	}
	if email := strings.TrimSpace(req.Email); email != "" && email != user.Email {
		if !emailPattern.MatchString(email) {
			return nil, invalidInput("Invalid email format")
		}
		taken, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, invalidInput("Email is already taken")
		}
		user.Email = email
	}

	var swap imageSwap
	if req.ProfileImg != "" {
		if user.ProfileImg, err = s.replaceImage(ctx, &swap, user.ProfileImg, req.ProfileImg); err != nil {
			s.deleteImages(ctx, swap.uploaded)
			return nil, err
		}
	}
	if req.CoverImg != "" {
		if user.CoverImg, err = s.replaceImage(ctx, &swap, user.CoverImg, req.CoverImg); err != nil {
			s.deleteImages(ctx, swap.uploaded)
			return nil, err
		}
	}

	if req.FullName != "" {
		user.FullName = strings.TrimSpace(req.FullName)
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Link != "" {
		user.Link = req.Link
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.users.Update(ctx, user); err != nil {
		s.deleteImages(ctx, swap.uploaded)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidInput("Username or email is already taken")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	// previous images go only once the record points at their replacements
	s.deleteImages(ctx, swap.replaced)
	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			return nil, err
		}
	}

	log.Info().Str("user_id", user.ID).Msg("Profile updated")
	return user, nil
}

// UpdatePushToken registers the caller's device token. An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, callerID, deviceToken string) error {
	var token *string
	if deviceToken = strings.TrimSpace(deviceToken); deviceToken != "" {
		token = &deviceToken
	}
	return s.users.UpdatePushToken(ctx, callerID, token)
}

// checkPasswordChange verifies the current password and returns the hash of the next one
func (s *UserService) checkPasswordChange(ctx context.Context, userID, current, next string) (string, error) {
	hash, err := s.users.PasswordHash(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	ok, err := s.hasher.Compare(hash, current)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", invalidInput("Current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return "", invalidInput("Password must be at least %d characters long", minPasswordLength)
	}
	return s.hasher.Hash(next)
}

// imageSwap tracks the images touched by one profile update, as public ids
type imageSwap struct {
	uploaded []string
	replaced []string
}

// replaceImage uploads raw and records it in swap. The previous image at
// oldURL is not removed here.
func (s *UserService) replaceImage(ctx context.Context, swap *imageSwap, oldURL, raw string) (string, error) {
	url, err := s.media.Upload(ctx, raw)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return "", invalidInput("Invalid image")
		}
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	swap.uploaded = append(swap.uploaded, media.PublicID(url))
	if oldURL != "" {
		swap.replaced = append(swap.replaced, media.PublicID(oldURL))
	}
	return url, nil
}

// deleteImages removes uploads by public id. Failures are logged.
func (s *UserService) deleteImages(ctx context.Context, publicIDs []string) {
	for _, id := range publicIDs {
		if err := s.media.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("public_id", id).Msg("Failed to delete image")
		}
	}
}
