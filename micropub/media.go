package micropub

import (
	"errors"
	"io"
	"net/http"

	"github.com/amberfield/press/internal/httpx"
	"github.com/amberfield/press/models"
	"golang.org/x/exp/slog"
)

// Upload is the media endpoint advertised by q=config. It accepts one file
// per request and answers with the stored file's URL.
func Upload(env *Env, w http.ResponseWriter, r *http.Request) error {
	file, header, err := r.FormFile("file")
	if err != nil {
		return httpx.Error(http.StatusBadRequest, errors.New("file is required"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	path, err := env.Media.Create(header.Filename, contentType, data)
	if err != nil {
		return err
	}
	uploaded := &models.UploadedFile{
		Name:        header.Filename,
		ContentType: contentType,
		Path:        path,
	}
	if err := env.DB.Where(models.UploadedFile{Path: path}).FirstOrCreate(uploaded).Error; err != nil {
		return err
	}
	env.Log().Info("stored media upload",
		slog.String("name", header.Filename),
		slog.String("path", path),
	)

	w.Header().Set("Location", "https://"+r.Host+"/media/"+path)
	w.WriteHeader(http.StatusCreated)
	return nil
}
