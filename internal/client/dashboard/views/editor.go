package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	"github.com/botdesk/botdesk/internal/client/quota"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
	"github.com/botdesk/botdesk/pkg/utils"
)

// ErrNoValidDocuments is returned by AddFiles when every file was rejected.
var ErrNoValidDocuments = errors.New("please select valid file types (PDF, DOC, DOCX, TXT)")

// EditorBackend is the part of the API the chatbot editor needs.
type EditorBackend interface {
	GetChatbot(ctx context.Context, id string) (*api.Chatbot, error)
	CreateChatbot(ctx context.Context, in api.ChatbotInput) (*api.Chatbot, error)
	UpdateChatbot(ctx context.Context, id string, in api.ChatbotInput) (*api.Chatbot, error)
	UploadDocuments(ctx context.Context, id string, files []api.Upload) (string, error)
}

// UsageSource reports chatbot usage; quota.Resolver implements it.
type UsageSource interface {
	Usage(ctx context.Context, user api.User) (quota.Usage, error)
}

// PendingFile is a document chosen locally and not uploaded yet.
type PendingFile struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileFromPath describes a file on disk as a pending upload.
func FileFromPath(path string) (PendingFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return PendingFile{}, err
	}
	if info.IsDir() {
		return PendingFile{}, fmt.Errorf("%s is a directory", path)
	}
	return PendingFile{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Document is either a pending file or metadata of one already stored.
type Document struct {
	Pending *PendingFile
	Stored  *api.DocumentMetadata
}

// Name returns the display name.
func (d Document) Name() string {
	if d.Pending != nil {
		return d.Pending.Name
	}
	if d.Stored.Name != "" {
		return d.Stored.Name
	}
	return d.Stored.Filename
}

// Size returns the size in bytes.
func (d Document) Size() int64 {
	if d.Pending != nil {
		return d.Pending.Size
	}
	return d.Stored.Size
}

// IsPending reports whether the document still needs uploading.
func (d Document) IsPending() bool { return d.Pending != nil }

// OpenResult tells the caller what to render after Open.
type OpenResult int

const (
	// EditorReady means the form can be shown.
	EditorReady OpenResult = iota
	// LimitReached means a new chatbot would exceed the quota.
	LimitReached
)

// SaveResult describes what Save did.
type SaveResult struct {
	Chatbot   *api.Chatbot
	Created   bool
	Uploaded  int
	UploadErr error // set when the metadata saved but documents did not
}

// Editor runs the create and edit flow for one chatbot.
type Editor struct {
	backend EditorBackend
	usage   UsageSource
	bus     *events.Bus
	user    api.User
	log     zerolog.Logger

	mu     sync.Mutex
	id     string
	form   api.ChatbotInput
	docs   []Document
	quota  quota.Usage
	opened bool
}

// NewEditor creates an editor for user. bus may be nil.
func NewEditor(backend EditorBackend, usage UsageSource, bus *events.Bus, user api.User) *Editor {
	return &Editor{
		backend: backend,
		usage:   usage,
		bus:     bus,
		user:    user,
		log:     logger.WithComponent("chatbot_editor"),
		form:    api.ChatbotInput{ChatEnabled: true},
	}
}

// Open checks the quota and, for an existing chatbot, loads it. An empty id
// opens a blank form. Editing never depends on the quota check.
func (e *Editor) Open(ctx context.Context, id string) (OpenResult, error) {
	u, err := e.usage.Usage(ctx, e.user)
	if err != nil {
		if id == "" {
			return EditorReady, fmt.Errorf("check chatbot limit: %w", err)
		}
		e.log.Warn().Err(err).Str("chatbot_id", id).Msg("Chatbot limit check failed, editing anyway")
	}

	e.mu.Lock()
	e.quota = u
	e.mu.Unlock()

	if id == "" {
		if !quota.CanCreate(u, false) {
			e.log.Info().Int("current", u.Current).Int("limit", u.Limit).Msg("Chatbot limit reached")
			return LimitReached, nil
		}
		e.mu.Lock()
		e.opened = true
		e.mu.Unlock()
		return EditorReady, nil
	}

	bot, err := e.backend.GetChatbot(ctx, id)
	if err != nil {
		return EditorReady, fmt.Errorf("load chatbot %s: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = bot.ID
	e.form = api.InputOf(*bot)
	e.docs = e.docs[:0]
	for i := range bot.UploadedDocuments {
		e.docs = append(e.docs, Document{Stored: &bot.UploadedDocuments[i]})
	}
	e.opened = true
	return EditorReady, nil
}

// Editing reports whether an existing chatbot is open.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id != ""
}

// Usage returns the quota seen by Open.
func (e *Editor) Usage() quota.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quota
}

// Form returns the current field values.
func (e *Editor) Form() api.ChatbotInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// SetForm replaces the field values.
func (e *Editor) SetForm(in api.ChatbotInput) {
	e.mu.Lock()
	e.form = in
	e.mu.Unlock()
}

// Documents returns the document list, stored ones first as loaded.
func (e *Editor) Documents() []Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Document(nil), e.docs...)
}

// AddFiles appends the acceptable files and returns how many were rejected.
// When none is acceptable nothing changes and ErrNoValidDocuments is returned.
func (e *Editor) AddFiles(files ...PendingFile) (rejected int, err error) {
	var accepted []Document
	for _, f := range files {
		mime, ok := utils.DocumentType(f.Name, f.ContentType)
		if !ok {
			rejected++
			continue
		}
		f.ContentType = mime
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		accepted = append(accepted, Document{Pending: &f})
	}
	if len(accepted) == 0 {
		return rejected, ErrNoValidDocuments
	}

	e.mu.Lock()
	e.docs = append(e.docs, accepted...)
	e.mu.Unlock()
	return rejected, nil
}

// RemoveDocument drops the document at index i from the form. Nothing is
// sent to the backend.
func (e *Editor) RemoveDocument(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.docs) {
		return fmt.Errorf("document %d: %w", i, apperrors.ErrNotFound)
	}
	e.docs = append(e.docs[:i:i], e.docs[i+1:]...)
	return nil
}

// Save validates the form and creates or updates the chatbot. Pending
// documents are uploaded after the metadata is saved; an upload failure is
// reported in SaveResult.UploadErr and does not undo the save.
func (e *Editor) Save(ctx context.Context) (SaveResult, error) {
	e.mu.Lock()
	opened := e.opened
	id := e.id
	form := e.form
	var pending []PendingFile
	for _, d := range e.docs {
		if d.Pending != nil {
			pending = append(pending, *d.Pending)
		}
	}
	u := e.quota
	e.mu.Unlock()

	if !opened {
		return SaveResult{}, errors.New("editor is not open")
	}
	if err := validateChatbot(form); err != nil {
		return SaveResult{}, err
	}
	if id == "" && !quota.CanCreate(u, false) {
		return SaveResult{}, apperrors.ErrQuotaReached
	}

	var (
		res SaveResult
		bot *api.Chatbot
		err error
	)
	if id == "" {
		bot, err = e.backend.CreateChatbot(ctx, form)
		res.Created = true
	} else {
		bot, err = e.backend.UpdateChatbot(ctx, id, form)
	}
	if err != nil {
		return SaveResult{}, err
	}
	if bot == nil || bot.ID == "" {
		bot = &api.Chatbot{ID: id}
	}
	res.Chatbot = bot

	e.mu.Lock()
	e.id = bot.ID
	e.mu.Unlock()

	if len(pending) > 0 {
		if err := e.upload(ctx, bot.ID, pending); err != nil {
			e.log.Warn().Err(err).Str("chatbot_id", bot.ID).Msg("Failed to upload documents")
			res.UploadErr = err
		} else {
			res.Uploaded = len(pending)
			e.dropPending()
		}
	}

	evt := events.EventChatbotUpdated
	if res.Created {
		evt = events.EventChatbotCreated
	}
	if e.bus != nil {
		e.bus.Emit(evt, events.ChatbotEvent{ChatbotID: bot.ID, CompanyName: form.CompanyName})
	}
	e.log.Info().Str("chatbot_id", bot.ID).Bool("created", res.Created).Int("documents", res.Uploaded).Msg("Chatbot saved")
	return res, nil
}

func (e *Editor) upload(ctx context.Context, id string, files []PendingFile) error {
	uploads := make([]api.Upload, 0, len(files))
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, f := range files {
		if f.Open == nil {
			return fmt.Errorf("document %s has no content", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		closers = append(closers, rc)
		uploads = append(uploads, api.Upload{Name: f.Name, ContentType: f.ContentType, Size: f.Size, Body: rc})
	}

	_, err := e.backend.UploadDocuments(ctx, id, uploads)
	return err
}

// dropPending removes uploaded files from the list; the backend now owns them.
func (e *Editor) dropPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.docs[:0]
	for _, d := range e.docs {
		if d.Pending == nil {
			kept = append(kept, d)
		}
	}
	e.docs = kept
}

func validateChatbot(in api.ChatbotInput) error {
	return utils.ValidateChatbotInput(utils.ChatbotInput{
		CompanyName:     in.CompanyName,
		CompanyEmail:    in.CompanyEmail,
		CompanyPhone:    in.CompanyPhone,
		CompanyAddress:  in.CompanyAddress,
		CompanyCategory: in.CompanyCategory,
		Instructions:    in.Instructions,
	})
}
