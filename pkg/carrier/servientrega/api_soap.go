package servientrega

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/template"
	"time"
)

// SOAPAPIClient is the production implementation of APIClient using the
// Servientrega SOAP web services.
type SOAPAPIClient struct {
	wsdlURL    string
	username   string
	password   string
	httpClient *http.Client
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	WSDLURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SOAPAPIClient{
		wsdlURL:  cfg.WSDLURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetRates fetches shipping rates via the CotizarEnvio operation.
func (c *SOAPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	soapBody, err := c.buildRatesRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.getQuotingEndpoint(), "CotizarEnvio", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseRatesResponse(resp.Body)
}

// CreateGuide books a shipment via the GenerarGuia operation.
func (c *SOAPAPIClient) CreateGuide(ctx context.Context, req *GuideRequest) (*GuideResponse, error) {
	soapBody, err := c.buildGuideRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.getGuidesEndpoint(), "GenerarGuia", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseGuideResponse(resp.Body)
}

// GetTracking retrieves movement history via the ConsultarGuia operation.
func (c *SOAPAPIClient) GetTracking(ctx context.Context, guideNumber string) (*TrackingResponse, error) {
	soapBody, err := c.buildTrackingRequest(guideNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.getTrackingEndpoint(), "ConsultarGuia", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseTrackingResponse(resp.Body, guideNumber)
}

// CancelGuide voids a guide via the AnularGuia operation.
func (c *SOAPAPIClient) CancelGuide(ctx context.Context, guideNumber string) (*CancelResponse, error) {
	soapBody, err := c.buildCancelRequest(guideNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.getGuidesEndpoint(), "AnularGuia", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseCancelResponse(resp.Body)
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

func (c *SOAPAPIClient) doSOAPRequest(ctx context.Context, endpoint, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Servientrega uses Basic Auth alongside the SOAP login header
	auth := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("http://tempuri.org/%s", action))

	return c.httpClient.Do(req)
}

func (c *SOAPAPIClient) getQuotingEndpoint() string {
	return c.wsdlURL + "/CotizadorCorporativo/Cotizador.asmx"
}

func (c *SOAPAPIClient) getGuidesEndpoint() string {
	return c.wsdlURL + "/GeneracionGuias/GeneracionGuias.asmx"
}

func (c *SOAPAPIClient) getTrackingEndpoint() string {
	return c.wsdlURL + "/RastreoEnvios/RastreoEnvios.asmx"
}

// ============================================================================
// SOAP Request Builders
// ============================================================================

const soapEnvelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tem="http://tempuri.org/">
  <soap:Header>
    <tem:AutenticacionHeader>
      <tem:login>{{.Login}}</tem:login>
      <tem:pwd>{{.Password}}</tem:pwd>
      <tem:IdReferencia>{{.RequestRef}}</tem:IdReferencia>
    </tem:AutenticacionHeader>
  </soap:Header>
  <soap:Body>
    {{.Body}}
  </soap:Body>
</soap:Envelope>`

func (c *SOAPAPIClient) buildRatesRequest(req *RatesRequest) ([]byte, error) {
	bodyTmpl := `<tem:CotizarEnvio>
      <tem:CiudadOrigen>{{.OriginCity}}</tem:CiudadOrigen>
      <tem:CodigoPostalOrigen>{{.OriginPostalCode}}</tem:CodigoPostalOrigen>
      <tem:CiudadDestino>{{.DestinationCity}}</tem:CiudadDestino>
      <tem:CodigoPostalDestino>{{.DestinationPostalCode}}</tem:CodigoPostalDestino>
      <tem:PaisDestino>{{.DestinationCountry}}</tem:PaisDestino>
      <tem:PesoTotal>{{.TotalWeightKG}}</tem:PesoTotal>
      <tem:NumeroPiezas>{{.TotalPieces}}</tem:NumeroPiezas>
      <tem:ValorDeclarado>{{.DeclaredValue}}</tem:ValorDeclarado>
    </tem:CotizarEnvio>`

	return c.buildEnvelope(bodyTmpl, req)
}

func (c *SOAPAPIClient) buildGuideRequest(req *GuideRequest) ([]byte, error) {
	bodyTmpl := `<tem:GenerarGuia>
      <tem:Remitente>
        <tem:Nombre>{{.Sender.Name}}</tem:Nombre>
        <tem:Empresa>{{.Sender.Company}}</tem:Empresa>
        <tem:Direccion>{{.Sender.Street}}</tem:Direccion>
        <tem:Ciudad>{{.Sender.City}}</tem:Ciudad>
        <tem:Departamento>{{.Sender.Province}}</tem:Departamento>
        <tem:CodigoPostal>{{.Sender.PostalCode}}</tem:CodigoPostal>
        <tem:Pais>{{.Sender.Country}}</tem:Pais>
        <tem:Telefono>{{.Sender.Phone}}</tem:Telefono>
      </tem:Remitente>
      <tem:Destinatario>
        <tem:Nombre>{{.Receiver.Name}}</tem:Nombre>
        <tem:Empresa>{{.Receiver.Company}}</tem:Empresa>
        <tem:Direccion>{{.Receiver.Street}}</tem:Direccion>
        <tem:Ciudad>{{.Receiver.City}}</tem:Ciudad>
        <tem:Departamento>{{.Receiver.Province}}</tem:Departamento>
        <tem:CodigoPostal>{{.Receiver.PostalCode}}</tem:CodigoPostal>
        <tem:Pais>{{.Receiver.Country}}</tem:Pais>
        <tem:Telefono>{{.Receiver.Phone}}</tem:Telefono>
      </tem:Destinatario>
      <tem:IdServicio>{{.ServiceID}}</tem:IdServicio>
      <tem:PesoTotal>{{.TotalWeightKG}}</tem:PesoTotal>
      <tem:NumeroPiezas>{{.TotalPieces}}</tem:NumeroPiezas>
      <tem:ValorDeclarado>{{.DeclaredValue}}</tem:ValorDeclarado>
      <tem:Referencia>{{.Reference}}</tem:Referencia>
    </tem:GenerarGuia>`

	return c.buildEnvelope(bodyTmpl, req)
}

func (c *SOAPAPIClient) buildTrackingRequest(guideNumber string) ([]byte, error) {
	bodyTmpl := `<tem:ConsultarGuia>
      <tem:NumeroGuia>{{.GuideNumber}}</tem:NumeroGuia>
    </tem:ConsultarGuia>`

	data := struct {
		GuideNumber string
	}{GuideNumber: guideNumber}

	return c.buildEnvelope(bodyTmpl, data)
}

func (c *SOAPAPIClient) buildCancelRequest(guideNumber string) ([]byte, error) {
	bodyTmpl := `<tem:AnularGuia>
      <tem:NumeroGuia>{{.GuideNumber}}</tem:NumeroGuia>
    </tem:AnularGuia>`

	data := struct {
		GuideNumber string
	}{GuideNumber: guideNumber}

	return c.buildEnvelope(bodyTmpl, data)
}

func (c *SOAPAPIClient) buildEnvelope(bodyTemplate string, data interface{}) ([]byte, error) {
	bodyTmpl, err := template.New("body").Parse(bodyTemplate)
	if err != nil {
		return nil, err
	}

	var bodyBuf bytes.Buffer
	if err := bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return nil, err
	}

	envTmpl, err := template.New("envelope").Parse(soapEnvelopeTemplate)
	if err != nil {
		return nil, err
	}

	envData := struct {
		Login      string
		Password   string
		RequestRef string
		Body       string
	}{
		Login:      c.username,
		Password:   c.password,
		RequestRef: fmt.Sprintf("req-%d", time.Now().UnixNano()),
		Body:       bodyBuf.String(),
	}

	var envBuf bytes.Buffer
	if err := envTmpl.Execute(&envBuf, envData); err != nil {
		return nil, err
	}

	return envBuf.Bytes(), nil
}

// ============================================================================
// SOAP Response Parsers - XML Types
// ============================================================================

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault                 *soapFault             `xml:"Fault,omitempty"`
	CotizarEnvioResponse  *cotizarEnvioResponse  `xml:"CotizarEnvioResponse,omitempty"`
	GenerarGuiaResponse   *generarGuiaResponse   `xml:"GenerarGuiaResponse,omitempty"`
	ConsultarGuiaResponse *consultarGuiaResponse `xml:"ConsultarGuiaResponse,omitempty"`
	AnularGuiaResponse    *anularGuiaResponse    `xml:"AnularGuiaResponse,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type responseStatus struct {
	Code        string `xml:"Codigo"`
	Description string `xml:"Descripcion"`
}

type cotizarEnvioResponse struct {
	Status      responseStatus `xml:"Estado"`
	Quotations  []quotation    `xml:"Cotizaciones>Cotizacion"`
}

type quotation struct {
	ServiceID   string `xml:"IdServicio"`
	ServiceName string `xml:"NombreServicio"`
	BasePrice   string `xml:"ValorFlete"`
	Surcharge   string `xml:"ValorSobreflete"`
	Tax         string `xml:"ValorImpuesto"`
	TotalPrice  string `xml:"ValorTotal"`
	Currency    string `xml:"Moneda"`
	TransitDays int    `xml:"DiasEntrega"`
}

type generarGuiaResponse struct {
	Status      responseStatus `xml:"Estado"`
	GuideNumber string         `xml:"NumeroGuia"`
	LabelURL    string         `xml:"UrlRotulo"`
	TotalPrice  string         `xml:"ValorTotal"`
	Currency    string         `xml:"Moneda"`
	ServiceID   string         `xml:"IdServicio"`
}

type consultarGuiaResponse struct {
	Status      responseStatus `xml:"Estado"`
	GuideNumber string         `xml:"NumeroGuia"`
	Movements   []soapMovement `xml:"Movimientos>Movimiento"`
}

type soapMovement struct {
	Date        string `xml:"Fecha"`
	Time        string `xml:"Hora"`
	Status      string `xml:"IdEstado"`
	Description string `xml:"Descripcion"`
	City        string `xml:"Ciudad"`
}

type anularGuiaResponse struct {
	Status    responseStatus `xml:"Estado"`
	Cancelled bool           `xml:"GuiaAnulada"`
}

// ============================================================================
// SOAP Response Parsing Functions
// ============================================================================

func (c *SOAPAPIClient) parseSOAPError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err == nil && env.Body.Fault != nil {
		return &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
		}
	}

	return &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: string(body),
	}
}

func (c *SOAPAPIClient) parseRatesResponse(body io.Reader) (*RatesResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Description: env.Body.Fault.String}
	}
	if env.Body.CotizarEnvioResponse == nil {
		return nil, &APIError{Code: "EMPTY_RESPONSE", Description: "missing CotizarEnvioResponse element"}
	}
	if err := statusError(env.Body.CotizarEnvioResponse.Status); err != nil {
		return nil, err
	}

	out := &RatesResponse{}
	for _, q := range env.Body.CotizarEnvioResponse.Quotations {
		out.Estimates = append(out.Estimates, Estimate{
			ServiceID:   q.ServiceID,
			ServiceName: q.ServiceName,
			BasePrice:   parseAmount(q.BasePrice),
			Surcharge:   parseAmount(q.Surcharge),
			Tax:         parseAmount(q.Tax),
			TotalPrice:  parseAmount(q.TotalPrice),
			Currency:    q.Currency,
			TransitDays: q.TransitDays,
		})
	}
	return out, nil
}

func (c *SOAPAPIClient) parseGuideResponse(body io.Reader) (*GuideResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Description: env.Body.Fault.String}
	}
	if env.Body.GenerarGuiaResponse == nil {
		return nil, &APIError{Code: "EMPTY_RESPONSE", Description: "missing GenerarGuiaResponse element"}
	}
	if err := statusError(env.Body.GenerarGuiaResponse.Status); err != nil {
		return nil, err
	}

	r := env.Body.GenerarGuiaResponse
	return &GuideResponse{
		GuideNumber: r.GuideNumber,
		LabelURL:    r.LabelURL,
		TotalPrice:  parseAmount(r.TotalPrice),
		Currency:    r.Currency,
		ServiceID:   r.ServiceID,
	}, nil
}

func (c *SOAPAPIClient) parseTrackingResponse(body io.Reader, guideNumber string) (*TrackingResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Description: env.Body.Fault.String}
	}
	if env.Body.ConsultarGuiaResponse == nil {
		return nil, &APIError{Code: "EMPTY_RESPONSE", Description: "missing ConsultarGuiaResponse element"}
	}
	if err := statusError(env.Body.ConsultarGuiaResponse.Status); err != nil {
		return nil, err
	}

	out := &TrackingResponse{GuideNumber: guideNumber}
	for _, m := range env.Body.ConsultarGuiaResponse.Movements {
		out.Movements = append(out.Movements, Movement{
			Date:        m.Date,
			Time:        m.Time,
			Status:      m.Status,
			Description: m.Description,
			City:        m.City,
		})
	}
	return out, nil
}

func (c *SOAPAPIClient) parseCancelResponse(body io.Reader) (*CancelResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Description: env.Body.Fault.String}
	}
	if env.Body.AnularGuiaResponse == nil {
		return nil, &APIError{Code: "EMPTY_RESPONSE", Description: "missing AnularGuiaResponse element"}
	}

	r := env.Body.AnularGuiaResponse
	if err := statusError(r.Status); err != nil {
		// A rejected cancellation still carries the status description
		return &CancelResponse{GuideCancelled: false, Reason: r.Status.Description}, nil
	}
	return &CancelResponse{GuideCancelled: r.Cancelled, Reason: r.Status.Description}, nil
}

// statusError converts a non-zero Estado block into an APIError.
func statusError(s responseStatus) error {
	if s.Code == "" || s.Code == "0" || s.Code == "00" {
		return nil
	}
	return &APIError{Code: s.Code, Description: s.Description}
}

// parseAmount parses Servientrega's decimal strings, tolerating comma separators.
func parseAmount(s string) float64 {
	cleaned := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ',':
			cleaned = append(cleaned, '.')
		case ' ':
		default:
			cleaned = append(cleaned, s[i])
		}
	}
	v, _ := strconv.ParseFloat(string(cleaned), 64)
	return v
}

var _ APIClient = (*SOAPAPIClient)(nil)
