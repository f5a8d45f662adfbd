// Package gdrive wraps the Google Docs, Sheets and Drive APIs behind the
// narrow contracts the bot needs: document text, spreadsheet ranges, folder
// sync into the knowledge base, and activity export.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	mimeGoogleDoc   = "application/vnd.google-apps.document"
	mimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
)

type Client struct {
	docs   *docs.Service
	drive  *drive.Service
	sheets *sheets.Service
}

// New builds the three API services from a service-account credentials file.
func New(ctx context.Context, credentialsPath string) (*Client, error) {
	docsSvc, err := docs.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(docs.DocumentsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	sheetsSvc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{docs: docsSvc, drive: driveSvc, sheets: sheetsSvc}, nil
}

// DocumentText fetches a Google Doc and flattens its body to plain text.
func (c *Client) DocumentText(documentID string) (string, error) {
	doc, err := c.docs.Documents.Get(documentID).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch document %s: %w", documentID, err)
	}

	var b strings.Builder
	if doc.Body == nil {
		return "", nil
	}
	for _, element := range doc.Body.Content {
		if element.Paragraph == nil {
			continue
		}
		for _, run := range element.Paragraph.Elements {
			if run.TextRun != nil {
				b.WriteString(run.TextRun.Content)
			}
		}
	}
	return b.String(), nil
}

// SheetValues reads a spreadsheet range and returns its rows as strings.
func (c *Client) SheetValues(spreadsheetID, readRange string) ([][]string, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s range %s: %w", spreadsheetID, readRange, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRows appends rows after the given range, for activity export.
func (c *Client) AppendRows(spreadsheetID, writeRange string, rows [][]any) error {
	_, err := c.sheets.Spreadsheets.Values.
		Append(spreadsheetID, writeRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheet %s: %w", spreadsheetID, err)
	}
	return nil
}

// DriveFile identifies one file inside a synced folder.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
}

// ListFolder returns the non-trashed files directly inside a Drive folder.
func (c *Client) ListFolder(folderID string) ([]DriveFile, error) {
	resp, err := c.drive.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields("files(id, name, mimeType)").
		PageSize(100).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	files := make([]DriveFile, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}
	return files, nil
}

// FileText fetches one Drive file as plain text. Google Docs and Sheets are
// exported; anything else is downloaded as-is and assumed textual. The
// boolean reports whether the file type is syncable at all.
func (c *Client) FileText(file DriveFile) (string, bool, error) {
	switch file.MimeType {
	case mimeGoogleDoc:
		return c.export(file.ID, "text/plain")
	case mimeGoogleSheet:
		return c.export(file.ID, "text/csv")
	default:
		if !strings.HasPrefix(file.MimeType, "text/") {
			return "", false, nil
		}
		resp, err := c.drive.Files.Get(file.ID).Download()
		if err != nil {
			return "", true, fmt.Errorf("failed to download file %s: %w", file.ID, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", true, fmt.Errorf("failed to read file %s: %w", file.ID, err)
		}
		return string(data), true, nil
	}
}

func (c *Client) export(fileID, mimeType string) (string, bool, error) {
	resp, err := c.drive.Files.Export(fileID, mimeType).Download()
	if err != nil {
		return "", true, fmt.Errorf("failed to export file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read export of %s: %w", fileID, err)
	}
	return string(data), true, nil
}
