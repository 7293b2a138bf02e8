package mail

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/newsfold/core"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParseMessage_Multipart(t *testing.T) {
	subject := "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte("注目AIニュース 2/3")) + "?="
	raw := crlf(`From: AI News <news@example.com>
To: me@example.com
Subject: ` + subject + `
Date: Tue, 03 Feb 2026 09:30:00 +0900
Message-ID: <abc123@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

caf=E9
--alt
Content-Type: text/html; charset=utf-8

<p>1.Topic</p>
--alt--
--outer
Content-Type: image/png
Content-Id: <logo@x>
Content-Transfer-Encoding: base64

UE5HREFUQQ==
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0=
--outer--
`)

	msg, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "注目AIニュース 2/3", msg.Subject)
	assert.Equal(t, "abc123@example.com", msg.ID)
	assert.Equal(t, "news@example.com", msg.From)
	assert.True(t, msg.Date.Equal(time.Date(2026, 2, 3, 0, 30, 0, 0, time.UTC)))
	assert.Equal(t, "café", strings.TrimSpace(msg.TextBody))
	assert.Equal(t, "<p>1.Topic</p>", strings.TrimSpace(msg.HTMLBody))

	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "logo@x", msg.Attachments[0].ContentID)
	assert.Equal(t, "image/png", msg.Attachments[0].MIMEType)
	assert.Equal(t, []byte("PNGDATA"), msg.Attachments[0].Data)
	assert.Equal(t, "report.pdf", msg.Attachments[1].Filename)
	assert.Equal(t, []byte("%PDF-"), msg.Attachments[1].Data)
}

func TestParseMessage_SinglePartWithoutDate(t *testing.T) {
	raw := crlf(`Subject: plain
Content-Type: text/html; charset=utf-8

<p>hello</p>
`)
	msg, err := ParseBytes([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "plain", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "<p>hello</p>")
	assert.Empty(t, msg.ID)
	assert.WithinDuration(t, time.Now(), msg.Date, time.Minute)
}

func TestDateToken(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 2, 3, 9, 30, 0, 0, jst), "20260201"},
		{time.Date(2026, 2, 1, 0, 0, 0, 0, jst), "20260201"},
		{time.Date(2026, 2, 7, 23, 59, 0, 0, jst), "20260201"},
		{time.Date(2026, 2, 8, 6, 0, 0, 0, jst), "20260208"},
		{time.Date(2026, 1, 1, 12, 0, 0, 0, jst), "20251228"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateToken(tt.at), "at=%s", tt.at)
	}
}

func TestDayWindowAndSameDay(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	day, err := ParseDay("2026-02-06", jst)
	require.NoError(t, err)

	since, before := DayWindow(day)
	assert.Equal(t, "2026-02-05", since.Format(DateLayout))
	assert.Equal(t, "2026-02-08", before.Format(DateLayout))

	assert.True(t, SameDay(time.Date(2026, 2, 6, 8, 0, 0, 0, jst), day))
	// 2026-02-05 23:30 UTC is already the 6th in JST.
	assert.True(t, SameDay(time.Date(2026, 2, 5, 23, 30, 0, 0, time.UTC), day))
	assert.False(t, SameDay(time.Date(2026, 2, 7, 0, 0, 1, 0, jst), day))

	_, err = ParseDay("06/02/2026", jst)
	assert.Error(t, err)
}

func TestLookbackWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	since, before := LookbackWindow(now, 7)
	assert.Equal(t, time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC), since)
	assert.True(t, before.IsZero())
}

func TestSearchCriteria(t *testing.T) {
	since := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	c := searchCriteria(core.MessageQuery{From: "news@example.com", Subject: "注目AIニュース", Since: since})
	assert.Equal(t, since, c.Since)
	assert.True(t, c.Before.IsZero())
	assert.Equal(t, []imap.SearchCriteriaHeaderField{
		{Key: "From", Value: "news@example.com"},
		{Key: "Subject", Value: "注目AIニュース"},
	}, c.Header)

	c = searchCriteria(core.MessageQuery{Subject: "注目AIニュース"})
	require.Len(t, c.Header, 1)
	assert.Equal(t, "Subject", c.Header[0].Key)
}

func TestProcessedID(t *testing.T) {
	assert.Equal(t, "abc@example.com", ProcessedID("abc@example.com", 7))
	assert.Equal(t, "uid:7", ProcessedID("", 7))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	htmlPath := filepath.Join(dir, "weekly issue.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<p>1.Topic</p>"), 0644))
	mtime := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(htmlPath, mtime, mtime))

	msg, err := ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Equal(t, "weekly issue", msg.Subject)
	assert.True(t, msg.Date.Equal(mtime))
	assert.Equal(t, "<p>1.Topic</p>", msg.HTMLBody)

	emlPath := filepath.Join(dir, "issue.eml")
	require.NoError(t, os.WriteFile(emlPath, []byte(crlf("Subject: eml\nContent-Type: text/plain\n\nhi\n")), 0644))
	msg, err = ReadFile(emlPath)
	require.NoError(t, err)
	assert.Equal(t, "eml", msg.Subject)

	_, err = ReadFile(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}
