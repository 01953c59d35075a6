package handlers

import (
	"net/http"
	"time"

	"productshoot/internal/studio"
)

type imagesResponse struct {
	Images []string `json:"images"`
}

// Images handles POST /api/images with either a multipart form or a JSON body.
func (a *App) Images(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := a.images(w, r)
	a.finish(w, r, "images", start, res, err, imagesResponse{Images: res.Images})
}

func (a *App) images(w http.ResponseWriter, r *http.Request) (studio.Result, error) {
	var in studio.ImagesInput
	if isJSON(r) {
		req, err := decodeJSON(w, r)
		if err != nil {
			return studio.Result{}, err
		}
		img, err := req.image()
		if err != nil {
			return studio.Result{}, err
		}
		in = studio.ImagesInput{Prompt: req.Prompt, Count: req.count(), Engine: req.Engine, Image: img}
	} else {
		form, err := readForm(w, r)
		if err != nil {
			return studio.Result{}, err
		}
		in = studio.ImagesInput{
			Prompt: form.value("prompt"),
			Count:  form.count(),
			Engine: form.value("engine"),
			Image:  form.image,
		}
	}
	return a.Studio.Images(r.Context(), in)
}
