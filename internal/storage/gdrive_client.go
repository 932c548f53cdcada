package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrNoToken means the Drive token file is missing and must be created
// interactively with AuthorizeDrive.
var ErrNoToken = errors.New("google drive token missing")

// DriveClient handles uploading rendered videos to Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveClient creates a new Google Drive client from an existing token.
func NewDriveClient(ctx context.Context, credentialsFile, tokenPath, folderName string) (*DriveClient, error) {
	config, err := driveConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFile(tokenPath).load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return newDriveClient(ctx, srv, folderName)
}

func newDriveClient(ctx context.Context, srv *drive.Service, folderName string) (*DriveClient, error) {
	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
	}

	// Find or create the root folder
	if err := dc.ensureFolder(ctx); err != nil {
		return nil, err
	}

	return dc, nil
}

func driveConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// AuthURL returns the consent page URL for the offline Drive token.
func AuthURL(credentialsFile string) (string, error) {
	config, err := driveConfig(credentialsFile)
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// AuthorizeDrive exchanges an authorization code and caches the token.
func AuthorizeDrive(ctx context.Context, credentialsFile, tokenPath, authCode string) error {
	config, err := driveConfig(credentialsFile)
	if err != nil {
		return err
	}
	tok, err := config.Exchange(ctx, strings.TrimSpace(authCode))
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tokenFile(tokenPath).store(tok)
}

// tokenFile is the cached offline token written by AuthorizeDrive.
type tokenFile string

func (p tokenFile) load() (*oauth2.Token, error) {
	b, err := os.ReadFile(string(p))
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", p, err)
	}
	return &tok, nil
}

func (p tokenFile) store(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o755); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(string(p), b, 0o600); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

// ensureFolder finds or creates the root folder
func (dc *DriveClient) ensureFolder(ctx context.Context) error {
	id, err := dc.findOrCreateFolder(ctx, dc.folderName, "")
	if err != nil {
		return fmt.Errorf("unable to prepare folder %q: %w", dc.folderName, err)
	}
	dc.folderID = id
	return nil
}

// Upload uploads a rendered video into a dated folder and returns its link.
func (dc *DriveClient) Upload(ctx context.Context, localPath string) (string, error) {
	folderID, err := dc.ensureDateFolder(ctx, time.Now())
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	file := &drive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}
	created, err := dc.service.Files.Create(file).
		Media(f, googleapi.ContentType("video/mp4")).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// ensureDateFolder walks the yyyy/mm/dd folders under the root folder.
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range strings.Split(t.Format("2006/01/02"), "/") {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", fmt.Errorf("date folder %s: %w", name, err)
		}
		parent = id
	}
	return parent, nil
}

// findOrCreateFolder returns the ID of the named folder under parentID,
// creating it when absent. An empty parentID means the Drive root.
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	list, err := dc.service.Files.List().
		Q(folderQuery(name, parentID)).
		Spaces("drive").
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder := &drive.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}
	created, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

const folderMimeType = "application/vnd.google-apps.folder"

// folderQuery builds a Drive search for a non-trashed folder.
func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
