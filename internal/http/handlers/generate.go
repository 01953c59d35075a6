package handlers

import (
	"net/http"
	"time"

	"productshoot/internal/studio"
)

type generateResponse struct {
	Prompts []string `json:"prompts"`
	Images  []string `json:"images"`
}

// Generate handles POST /api/generate (multipart/form-data).
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := a.generate(w, r)
	a.finish(w, r, "generate", start, res, err, generateResponse{Prompts: res.Prompts, Images: res.Images})
}

func (a *App) generate(w http.ResponseWriter, r *http.Request) (studio.Result, error) {
	form, err := readForm(w, r)
	if err != nil {
		return studio.Result{}, err
	}
	return a.Studio.Generate(r.Context(), studio.GenerateInput{
		Template:    form.value("template"),
		Description: form.value("productDescription"),
		Count:       form.count(),
		Engine:      form.value("engine"),
		Image:       form.image,
	})
}
