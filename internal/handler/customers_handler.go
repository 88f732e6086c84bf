package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/listing"
	"github.com/tekinformatica/painel-go/internal/service"
)

// maxImportBytes caps CSV uploads.
const maxImportBytes = 10 << 20

type customerResponse struct {
	Customer *domain.CustomerView `json:"cliente"`
	Notice   domain.Notice        `json:"notice"`
}

type bulkWhatsappRequest struct {
	IDs []string `json:"ids"`
}

// ============================================================
// GET /v1/customers
// ============================================================

func listCustomersHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers")
		defer span.End()

		q, err := listing.ParseQuery(r.URL.Query())
		if err != nil {
			handleServiceError(w, err, "Filtro inválido", logger)
			return
		}

		list, err := svc.List(ctx, q)
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar clientes", logger)
			return
		}
		span.SetAttributes(attribute.Int("customers.count", list.Total), attribute.Bool("stale", list.Stale))
		writeJSON(w, http.StatusOK, list)
	}
}

func getCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{id}")
		defer span.End()

		id, err := customerIDParam(r)
		if err != nil {
			handleServiceError(w, err, "Cliente não encontrado", logger)
			return
		}

		v, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar cliente", logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// ============================================================
// Mutations
// ============================================================

func createCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/customers")
		defer span.End()

		var in domain.CustomerInput
		if !decodeJSON(w, r, &in) {
			return
		}

		v, err := svc.Create(ctx, &in)
		if err != nil {
			handleServiceError(w, err, "Erro ao criar cliente", logger)
			return
		}
		writeJSON(w, http.StatusCreated, customerResponse{
			Customer: v,
			Notice:   domain.NewNotice("Cliente criado", fmt.Sprintf("%s foi adicionado com sucesso", v.Name)),
		})
	}
}

func updateCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/customers/{id}")
		defer span.End()

		id, err := customerIDParam(r)
		if err != nil {
			handleServiceError(w, err, "Erro ao atualizar cliente", logger)
			return
		}

		var patch domain.CustomerPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		v, err := svc.Update(ctx, id, &patch)
		if err != nil {
			handleServiceError(w, err, "Erro ao atualizar cliente", logger)
			return
		}
		writeJSON(w, http.StatusOK, customerResponse{
			Customer: v,
			Notice:   domain.NewNotice("Cliente atualizado", fmt.Sprintf("%s foi atualizado", v.Name)),
		})
	}
}

func deleteCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/customers/{id}")
		defer span.End()

		id, err := customerIDParam(r)
		if err != nil {
			handleServiceError(w, err, "Erro ao deletar cliente", logger)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			handleServiceError(w, err, "Erro ao deletar cliente", logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{
			Message: "Cliente removido",
			ID:      id,
			Notice:  domain.NewNotice("Cliente removido", "O cliente foi removido com sucesso"),
		})
	}
}

func renewCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/customers/{id}/renewals")
		defer span.End()

		id, err := customerIDParam(r)
		if err != nil {
			handleServiceError(w, err, "Erro ao renovar cliente", logger)
			return
		}

		var req domain.RenewalRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		operator := OperatorIDFromContext(ctx)
		span.SetAttributes(attribute.Int("months", req.Months), attribute.String("operator", operator))

		res, err := svc.Renew(ctx, id, req.Months)
		if err != nil {
			handleServiceError(w, err, "Erro ao renovar cliente", logger)
			return
		}
		logger.Info("customer renewed",
			zap.String("customer_id", id),
			zap.Int("months", req.Months),
			zap.String("operator", operator),
		)
		writeJSON(w, http.StatusOK, res)
	}
}

// ============================================================
// CSV
// ============================================================

// importCustomersHandler accepts a raw CSV body or a multipart form with a
// "file" field.
func importCustomersHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/customers/import")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

		var body io.Reader = r.Body
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			file, _, err := r.FormFile("file")
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "file", Message: "arquivo CSV não enviado"}, "Erro ao importar CSV", logger)
				return
			}
			defer file.Close()
			body = file
		}

		data, err := io.ReadAll(body)
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "file", Message: err.Error()}, "Erro ao importar CSV", logger)
			return
		}

		n, err := svc.Import(ctx, bytes.NewReader(data))
		if err != nil {
			handleServiceError(w, err, "Erro ao importar CSV", logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.ImportResult{
			Imported: n,
			Notice:   domain.NewNotice("CSV importado", fmt.Sprintf("%d clientes importados com sucesso", n)),
		})
	}
}

func exportCustomersHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/export")
		defer span.End()

		q, err := listing.ParseQuery(r.URL.Query())
		if err != nil {
			handleServiceError(w, err, "Filtro inválido", logger)
			return
		}

		var buf bytes.Buffer
		n, err := svc.Export(ctx, &buf, q)
		if err != nil {
			handleServiceError(w, err, "Erro ao exportar CSV", logger)
			return
		}
		span.SetAttributes(attribute.Int("customers.exported", n))

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="clientes.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// ============================================================
// WhatsApp
// ============================================================

func whatsappLinkHandler(svc *service.WhatsappService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{id}/whatsapp")
		defer span.End()

		id, err := customerIDParam(r)
		if err != nil {
			handleServiceError(w, err, "Erro ao preparar mensagem", logger)
			return
		}

		link, err := svc.Link(ctx, id)
		if err != nil {
			handleServiceError(w, err, "Erro ao preparar mensagem", logger)
			return
		}
		writeJSON(w, http.StatusOK, link)
	}
}

func bulkWhatsappHandler(svc *service.WhatsappService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/customers/whatsapp")
		defer span.End()

		var req bulkWhatsappRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ids := make([]string, 0, len(req.IDs))
		for _, id := range req.IDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}

		res, err := svc.BulkLinks(ctx, ids)
		if err != nil {
			handleServiceError(w, err, "Erro ao preparar mensagens", logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
