package service

import (
	"context"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/policy"
	"blogicum/internal/repository"
	"blogicum/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxNameLen = 150

// PostLister lists posts for a scope. *PostService implements it.
type PostLister interface {
	ListPosts(ctx context.Context, in ListPostsInput) (Result[PostPage], error)
}

type UserService struct {
	userRepo   repository.UserRepository
	posts      PostLister
	bcryptCost int
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginInput struct {
	Username string
	Password string
}

type GetProfileInput struct {
	Username string
	Viewer   policy.Actor
	Now      time.Time
	Page     string
}

// ProfileForm carries the editable account fields.
type ProfileForm struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UpdateProfileInput struct {
	Actor policy.Actor
	ProfileForm
}

// Profile is the payload of a user's page.
type Profile struct {
	User    *models.User `json:"user"`
	Posts   PostPage     `json:"posts"`
	IsOwner bool         `json:"is_owner"`
}

func NewUserService(userRepo repository.UserRepository, posts PostLister) *UserService {
	return &UserService{userRepo: userRepo, posts: posts, bcryptCost: bcrypt.DefaultCost}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	form := ProfileForm{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	fields, err := s.checkProfile(ctx, form, 0)
	if err != nil {
		return nil, err
	}
	if perr := validation.ValidatePassword(in.Password); perr != nil {
		fields["password"] = perr.Error()
	}
	if err := models.NewFieldValidationError(fields); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials. Unknown users and wrong passwords
// produce the same error.
func (s *UserService) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	return user, nil
}

// GetProfile returns the user's page with their posts. The owner sees
// unpublished and scheduled posts too.
func (s *UserService) GetProfile(ctx context.Context, in GetProfileInput) (Result[Profile], error) {
	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return Result[Profile]{}, err
	}
	if user == nil {
		return NotFound[Profile](), nil
	}

	page, err := s.posts.ListPosts(ctx, ListPostsInput{
		Scope:  ByAuthor(user.Username),
		Viewer: in.Viewer,
		Now:    in.Now,
		Page:   in.Page,
	})
	if err != nil {
		return Result[Profile]{}, err
	}
	if page.Outcome != OutcomeOK {
		return NotFound[Profile](), nil
	}

	return Ok(Profile{
		User:    user,
		Posts:   page.Payload,
		IsOwner: in.Viewer.Is(user.ID),
	}), nil
}

// EditProfileForm returns the actor's current account fields.
func (s *UserService) EditProfileForm(ctx context.Context, actor policy.Actor) (Result[ProfileForm], error) {
	if !actor.Authenticated() {
		return RedirectTo[ProfileForm](LoginPath), nil
	}
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return Result[ProfileForm]{}, err
	}
	return Ok(ProfileForm{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}), nil
}

// UpdateProfile saves the actor's own account fields.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (Result[*models.User], error) {
	if !in.Actor.Authenticated() {
		return RedirectTo[*models.User](LoginPath), nil
	}
	user, err := s.userRepo.GetByID(ctx, in.Actor.ID)
	if err != nil {
		return Result[*models.User]{}, err
	}

	form := ProfileForm{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	fields, err := s.checkProfile(ctx, form, user.ID)
	if err != nil {
		return Result[*models.User]{}, err
	}
	if err := models.NewFieldValidationError(fields); err != nil {
		return Result[*models.User]{}, err
	}

	user.Username = form.Username
	user.Email = form.Email
	user.FirstName = form.FirstName
	user.LastName = form.LastName
	if err := s.userRepo.Update(ctx, user); err != nil {
		return Result[*models.User]{}, err
	}

	return Result[*models.User]{
		Outcome: OutcomeRedirect,
		Payload: user,
		Target:  ProfilePath(user.Username),
	}, nil
}

// checkProfile validates the account fields and their uniqueness, ignoring
// the account with id self.
func (s *UserService) checkProfile(ctx context.Context, form ProfileForm, self uint) (map[string]string, error) {
	fields := map[string]string{}

	if err := validation.ValidateUsername(form.Username); err != nil {
		fields["username"] = err.Error()
	} else {
		existing, err := s.userRepo.GetByUsername(ctx, form.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != self {
			fields["username"] = "A user with that username already exists"
		}
	}

	if err := validation.ValidateEmail(form.Email); err != nil {
		fields["email"] = err.Error()
	} else {
		existing, err := s.userRepo.GetByEmail(ctx, form.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != self {
			fields["email"] = "A user with that email already exists"
		}
	}

	if len([]rune(form.FirstName)) > maxNameLen {
		fields["first_name"] = "First name too long (max 150 characters)"
	}
	if len([]rune(form.LastName)) > maxNameLen {
		fields["last_name"] = "Last name too long (max 150 characters)"
	}
	return fields, nil
}
