package handlers

import (
	"net/http"
	"time"

	"productshoot/internal/studio"
)

type promptsResponse struct {
	Prompts []string `json:"prompts"`
}

// Prompts handles POST /api/prompts with either a multipart form or a JSON body.
func (a *App) Prompts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := a.prompts(w, r)
	a.finish(w, r, "prompts", start, res, err, promptsResponse{Prompts: res.Prompts})
}

func (a *App) prompts(w http.ResponseWriter, r *http.Request) (studio.Result, error) {
	if isJSON(r) {
		req, err := decodeJSON(w, r)
		if err != nil {
			return studio.Result{}, err
		}
		img, err := req.image()
		if err != nil {
			return studio.Result{}, err
		}
		return a.Studio.Prompts(r.Context(), studio.PromptsInput{
			Template:    req.Template,
			Description: req.ProductDescription,
			Count:       req.count(),
			Image:       img,
		})
	}
	form, err := readForm(w, r)
	if err != nil {
		return studio.Result{}, err
	}
	return a.Studio.Prompts(r.Context(), studio.PromptsInput{
		Template:    form.value("template"),
		Description: form.value("productDescription"),
		Count:       form.count(),
		Image:       form.image,
	})
}
