package api

import (
	"html/template"
	"net/http"

	"partner-portal/internal/apperr"
	"partner-portal/pkg/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// landingTemplate — страница заявки для ссылок типа landing/iframe.
// Форма отправляет JSON на публичный эндпоинт формы.
var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Оставить заявку</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f5f6fa; margin: 0; padding: 24px; }
.card { max-width: 420px; margin: 0 auto; background: #fff; border-radius: 12px; padding: 28px; box-shadow: 0 2px 12px rgba(0,0,0,.08); }
h1 { font-size: 20px; margin: 0 0 16px; }
label { display: block; font-size: 13px; color: #555; margin: 12px 0 4px; }
input, textarea { width: 100%; box-sizing: border-box; padding: 10px; border: 1px solid #d4d7dd; border-radius: 8px; font-size: 14px; }
button { width: 100%; margin-top: 18px; padding: 12px; border: 0; border-radius: 8px; background: #2a6af2; color: #fff; font-size: 15px; cursor: pointer; }
.msg { margin-top: 14px; font-size: 14px; text-align: center; display: none; }
.msg.ok { color: #1d8a4a; } .msg.err { color: #c0392b; }
</style>
</head>
<body>
<div class="card">
<h1>Оставить заявку</h1>
<form id="lead-form">
<label>Имя *</label><input name="name" required>
<label>Телефон</label><input name="phone" type="tel">
<label>Email</label><input name="email" type="email">
<label>Компания</label><input name="company">
<label>Комментарий</label><textarea name="comment" rows="3"></textarea>
<button type="submit">Отправить</button>
</form>
<div class="msg ok" id="msg-ok">Спасибо! Ваша заявка принята.</div>
<div class="msg err" id="msg-err">Не удалось отправить заявку. Попробуйте позже.</div>
</div>
<script>
document.getElementById('lead-form').addEventListener('submit', async function (e) {
  e.preventDefault();
  const data = Object.fromEntries(new FormData(this).entries());
  for (const k of Object.keys(data)) if (!data[k]) delete data[k];
  try {
    const resp = await fetch('/api/public/form/{{.LinkCode}}', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify(data)
    });
    if (!resp.ok) throw new Error('bad status');
    this.style.display = 'none';
    document.getElementById('msg-ok').style.display = 'block';
  } catch (err) {
    document.getElementById('msg-err').style.display = 'block';
  }
});
</script>
</body>
</html>
`))

// handleRedirect обрабатывает переход по публичной ссылке.
// Клик фиксируется всегда, даже если редирект не состоится.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "linkCode")

	res, err := s.links.Resolve(r.Context(), code)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.links.RecordClick(r.Context(), res.Link.ID, r.RemoteAddr, r.UserAgent(), r.Referer())
	s.metrics.RecordClick(string(res.Link.LinkType))

	if res.RedirectURL != "" {
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}
	s.renderLanding(w, r, res.Link.LinkCode)
}

// handleLandingPage отдает страницу заявки без учета клика.
// Используется внутри iframe-встраивания.
func (s *Server) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "linkCode")

	res, err := s.links.Resolve(r.Context(), code)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderLanding(w, r, res.Link.LinkCode)
}

func (s *Server) renderLanding(w http.ResponseWriter, r *http.Request, linkCode string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landingTemplate.Execute(w, map[string]string{"LinkCode": linkCode}); err != nil {
		s.logger.Error("ошибка рендера страницы заявки", zap.Error(err))
	}
}

// handlePublicForm принимает заявку с публичной формы
func (s *Server) handlePublicForm(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "linkCode")

	res, err := s.links.Resolve(r.Context(), code)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req models.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	client, err := s.clients.CreateFromForm(r.Context(), res.Link, &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.metrics.RecordClientCreated(string(models.ClientSourceForm))
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"client_id": client.ID,
	})
}

// handleBitrixWebhook принимает событие обновления лида из Bitrix24.
// Токен в пути идентифицирует партнера.
func (s *Server) handleBitrixWebhook(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var event models.WebhookLeadUpdate
	if err := decodeJSON(r, &event); err != nil {
		s.metrics.RecordWebhookEvent("invalid")
		s.respondError(w, r, err)
		return
	}

	processed, err := s.webhook.HandleLeadUpdate(r.Context(), token, &event)
	if err != nil {
		if apperr.IsKind(err, apperr.KindForbidden) {
			s.metrics.RecordWebhookEvent("unauthorized")
		} else {
			s.metrics.RecordWebhookEvent("error")
		}
		s.respondError(w, r, err)
		return
	}

	if processed {
		s.metrics.RecordWebhookEvent("processed")
	} else {
		s.metrics.RecordWebhookEvent("ignored")
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": processed,
	})
}
