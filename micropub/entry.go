package micropub

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/amberfield/press/models"
	"gorm.io/gorm"
)

// A propError describes a publish request whose properties cannot be
// materialized. It aborts the enclosing transaction and surfaces to the
// client as an invalid_request response.
type propError string

func (e propError) Error() string { return string(e) }

func invalidProps(format string, args ...any) error {
	return propError(fmt.Sprintf(format, args...))
}

// createEntryFromForm materializes an entry from a flat form body. Must run
// inside a transaction; any failure after the entry row is inserted rolls
// the whole thing back.
func createEntryFromForm(tx *gorm.DB, form url.Values, now time.Time) (*models.Entry, error) {
	published, created, err := resolveDates(func(key string) any {
		if vs, ok := form[key]; ok {
			return vs
		}
		return nil
	}, now)
	if err != nil {
		return nil, err
	}

	day := models.Day(created)
	ordinal, err := models.NextOrdinal(tx, day)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		Title:       form.Get("name"),
		Description: form.Get("summary"),

		CreatedDate:   created,
		PublishedDate: published,

		Date:    day,
		Ordinal: ordinal,

		ReplyTo:  form.Get("in-reply-to"),
		Location: form.Get("location"),
		RepostOf: form.Get("repost-of"),

		Content:     form.Get("content"),
		ContentType: "text/plain",
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	if err := createSyndications(tx, entry, formList(form, "syndication")); err != nil {
		return nil, err
	}
	if err := createTargetSyndications(tx, entry, formList(form, "mp-syndicate-to")); err != nil {
		return nil, err
	}
	if err := createTags(tx, entry, formList(form, "category")); err != nil {
		return nil, err
	}
	return entry, nil
}

// createEntryFromJSON materializes an entry from decoded microformats2
// properties. Must run inside a transaction.
//
// Note the created/published assignment is swapped relative to the form
// path. Both call sites have always disagreed on which wire field becomes
// which column, and stored entries depend on it, so the asymmetry is kept.
func createEntryFromJSON(tx *gorm.DB, props map[string]any, now time.Time) (*models.Entry, error) {
	contentType, content, err := parseContent(props["content"])
	if err != nil {
		return nil, err
	}

	published, created, err := resolveDates(func(key string) any {
		return props[key]
	}, now)
	if err != nil {
		return nil, err
	}

	title, err := stringProp(props, "name")
	if err != nil {
		return nil, err
	}
	summary, err := stringProp(props, "summary")
	if err != nil {
		return nil, err
	}
	replyTo, err := stringProp(props, "in-reply-to")
	if err != nil {
		return nil, err
	}
	location, err := stringProp(props, "location")
	if err != nil {
		return nil, err
	}
	repostOf, err := stringProp(props, "repost-of")
	if err != nil {
		return nil, err
	}

	day := models.Day(created)
	ordinal, err := models.NextOrdinal(tx, day)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		Title:       title,
		Description: summary,

		CreatedDate:   published,
		PublishedDate: created,

		Date:    day,
		Ordinal: ordinal,

		ReplyTo:  replyTo,
		Location: location,
		RepostOf: repostOf,

		Content:     content,
		ContentType: contentType,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	syndications, err := stringList(props["syndication"], "syndication")
	if err != nil {
		return nil, err
	}
	if err := createSyndications(tx, entry, syndications); err != nil {
		return nil, err
	}
	targets, err := stringList(props["mp-syndicate-to"], "mp-syndicate-to")
	if err != nil {
		return nil, err
	}
	if err := createTargetSyndications(tx, entry, targets); err != nil {
		return nil, err
	}
	categories, err := stringList(props["category"], "category")
	if err != nil {
		return nil, err
	}
	if err := createTags(tx, entry, categories); err != nil {
		return nil, err
	}
	if err := createAttachments(tx, entry, props["photo"]); err != nil {
		return nil, err
	}
	return entry, nil
}

// createSyndications records author supplied syndication URLs; the copy
// already exists, so the status is immediately syndicated.
func createSyndications(tx *gorm.DB, entry *models.Entry, urls []string) error {
	for _, u := range urls {
		syn := &models.Syndication{
			EntryID:  entry.ID,
			Location: u,
			Status:   models.SyndicationSyndicated,
		}
		if err := tx.Create(syn).Error; err != nil {
			return err
		}
	}
	return nil
}

// createTargetSyndications schedules copies to registered targets. An
// unknown or disabled target invalidates the whole publish request.
func createTargetSyndications(tx *gorm.DB, entry *models.Entry, uids []string) error {
	for _, uid := range uids {
		var target models.SyndicationTarget
		err := tx.Where("enabled = ?", true).First(&target, "id = ?", uid).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidProps("invalid syndication target %s", uid)
			}
			return err
		}
		syn := &models.Syndication{
			EntryID:  entry.ID,
			TargetID: &target.ID,
			Status:   models.SyndicationScheduled,
		}
		if err := tx.Create(syn).Error; err != nil {
			return err
		}
	}
	return nil
}

func createTags(tx *gorm.DB, entry *models.Entry, categories []string) error {
	for _, category := range categories {
		var tag models.Tag
		if err := tx.FirstOrCreate(&tag, models.Tag{ID: category}).Error; err != nil {
			return err
		}
		if err := tx.Model(entry).Association("Tags").Append(&tag); err != nil {
			return err
		}
	}
	return nil
}

// createAttachments records photo attachments in their supplied order. Each
// may be a bare URL string or an object with value and alt.
func createAttachments(tx *gorm.DB, entry *models.Entry, v any) error {
	if v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return invalidProps(`key "photo" is not a list`)
	}
	for i, item := range list {
		var u string
		var caption *string
		switch item := item.(type) {
		case string:
			u = item
		case map[string]any:
			value, ok := item["value"].(string)
			if !ok {
				return invalidProps("photo %d has no value", i)
			}
			u = value
			if alt, ok := item["alt"].(string); ok {
				caption = &alt
			}
		default:
			return invalidProps("could not parse photo %d", i)
		}
		att := &models.Attachment{
			EntryID:     entry.ID,
			Index:       i,
			URL:         u,
			Caption:     caption,
			Spoiler:     models.CaptionSpoiler(caption),
			ContentType: "photo",
		}
		if err := tx.Create(att).Error; err != nil {
			return err
		}
	}
	return nil
}
