package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"QuorumCert/internal/entities"
)

// Service records and exposes the node's metrics on its own registry so
// tests can run several instances without collisions.
type Service struct {
	registry *prometheus.Registry

	signerRegistrationTotal      prometheus.Counter     // signer registrations received since startup
	signerRegistrationSuccess    prometheus.Counter     // signer registrations accepted since startup
	signatureRegistrationTotal   prometheus.Counter     // signatures received since startup
	signatureRegistrationSuccess prometheus.Counter     // signatures authenticated since startup
	signatureSuccessLastEpoch    prometheus.Gauge       // signatures authenticated in the current epoch
	artifactComputationTotal     *prometheus.CounterVec // artifact computations attempted, by entity kind
	artifactComputationSuccess   *prometheus.CounterVec // artifact computations succeeded, by entity kind
	certificationRoundTotal      prometheus.Counter     // certification rounds run since startup
	certificationRoundSuccess    prometheus.Counter     // certification rounds that produced a certificate
}

// New creates a Service with all collectors registered.
func New() *Service {
	registry := prometheus.NewRegistry()

	s := &Service{
		registry: registry,
		signerRegistrationTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signer_registration_total_since_startup",
			Help: "Number of signer registrations received since startup",
		}),
		signerRegistrationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signer_registration_success_since_startup",
			Help: "Number of signer registrations accepted since startup",
		}),
		signatureRegistrationTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signature_registration_total_since_startup",
			Help: "Number of single signatures received since startup",
		}),
		signatureRegistrationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signature_registration_success_since_startup",
			Help: "Number of single signatures authenticated since startup",
		}),
		signatureSuccessLastEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signature_registration_success_last_epoch",
			Help: "Number of single signatures authenticated in the current epoch",
		}),
		artifactComputationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_computation_total_since_startup",
			Help: "Number of artifact computations attempted since startup",
		}, []string{"entity_kind"}),
		artifactComputationSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_computation_success_since_startup",
			Help: "Number of artifact computations succeeded since startup",
		}, []string{"entity_kind"}),
		certificationRoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certification_round_total_since_startup",
			Help: "Number of certification rounds run since startup",
		}),
		certificationRoundSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certification_round_success_since_startup",
			Help: "Number of certification rounds that produced a certificate",
		}),
	}

	registry.MustRegister(
		s.signerRegistrationTotal,
		s.signerRegistrationSuccess,
		s.signatureRegistrationTotal,
		s.signatureRegistrationSuccess,
		s.signatureSuccessLastEpoch,
		s.artifactComputationTotal,
		s.artifactComputationSuccess,
		s.certificationRoundTotal,
		s.certificationRoundSuccess,
	)

	return s
}

// Handler returns the HTTP handler serving the metrics in text format.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// SignerRegistrationReceived counts an inbound signer registration.
func (s *Service) SignerRegistrationReceived() {
	s.signerRegistrationTotal.Inc()
}

// SignerRegistrationAccepted counts an accepted signer registration.
func (s *Service) SignerRegistrationAccepted() {
	s.signerRegistrationSuccess.Inc()
}

// SignatureReceived counts an inbound single signature.
func (s *Service) SignatureReceived() {
	s.signatureRegistrationTotal.Inc()
}

// SignatureAuthenticated counts an authenticated single signature.
func (s *Service) SignatureAuthenticated() {
	s.signatureRegistrationSuccess.Inc()
	s.signatureSuccessLastEpoch.Inc()
}

// EpochRotated resets the per-epoch gauges.
func (s *Service) EpochRotated() {
	s.signatureSuccessLastEpoch.Set(0)
}

// ArtifactComputationStarted counts an attempted artifact computation.
func (s *Service) ArtifactComputationStarted(kind entities.SignedEntityKind) {
	s.artifactComputationTotal.WithLabelValues(kind.String()).Inc()
}

// ArtifactComputationSucceeded counts a successful artifact computation.
func (s *Service) ArtifactComputationSucceeded(kind entities.SignedEntityKind) {
	s.artifactComputationSuccess.WithLabelValues(kind.String()).Inc()
}

// CertificationRoundRun counts a certification round.
func (s *Service) CertificationRoundRun() {
	s.certificationRoundTotal.Inc()
}

// CertificationRoundSucceeded counts a round that produced a certificate.
func (s *Service) CertificationRoundSucceeded() {
	s.certificationRoundSuccess.Inc()
}
