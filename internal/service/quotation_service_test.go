package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/pdf"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

func newQuotationService(t *testing.T, mockRepo *mocks.MockRepository) service.QuotationService {
	t.Helper()
	cfg := testConfig("http://localhost:9999")
	waClient := whatsapp.NewClient(&cfg.WhatsApp, zap.NewNop())
	return service.NewQuotationService(mockRepo, pdf.NewGenerator(pdf.DefaultCompany), waClient, zap.NewNop())
}

func TestQuotationService_Create_Totals(t *testing.T) {
	tests := []struct {
		name            string
		items           []service.QuotationItemInput
		discountPercent float64
		taxPercent      float64
		wantSubtotal    float64
		wantDiscount    float64
		wantTax         float64
		wantTotal       float64
	}{
		{
			name: "vat only",
			items: []service.QuotationItemInput{
				{Description: "Consulting", Quantity: 10, UnitPrice: 1200},
			},
			taxPercent:   7,
			wantSubtotal: 12000,
			wantTax:      840,
			wantTotal:    12840,
		},
		{
			name: "discount then vat",
			items: []service.QuotationItemInput{
				{Description: "Platform license", Quantity: 1, UnitPrice: 100000},
			},
			discountPercent: 10,
			taxPercent:      7,
			wantSubtotal:    100000,
			wantDiscount:    10000,
			wantTax:         6300,
			wantTotal:       96300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
			mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
			mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
			mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

			mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{ID: "cust-1"}, nil)
			mockQuotationRepo.EXPECT().CountCreatedOn(gomock.Any()).Return(0, nil)
			mockQuotationRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(q *models.Quotation) error {
				q.ID = "quote-1"
				return nil
			})

			svc := newQuotationService(t, mockRepo)
			quotation, err := svc.Create(service.QuotationInput{
				CustomerID:      "cust-1",
				Title:           "Services",
				Items:           tt.items,
				DiscountPercent: tt.discountPercent,
				TaxPercent:      tt.taxPercent,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubtotal, quotation.Subtotal)
			assert.Equal(t, tt.wantDiscount, quotation.DiscountAmount)
			assert.Equal(t, tt.wantTax, quotation.TaxAmount)
			assert.Equal(t, tt.wantTotal, quotation.TotalAmount)
			assert.Equal(t, models.QuotationStatusDraft, quotation.Status)
		})
	}
}

func TestQuotationService_Create_QuoteNumber(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{ID: "cust-1"}, nil)
	mockQuotationRepo.EXPECT().CountCreatedOn(gomock.Any()).Return(4, nil)
	mockQuotationRepo.EXPECT().Create(gomock.Any()).Return(nil)

	svc := newQuotationService(t, mockRepo)
	quotation, err := svc.Create(service.QuotationInput{
		CustomerID: "cust-1",
		Title:      "Services",
		Items:      []service.QuotationItemInput{{Description: "Work", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	want := fmt.Sprintf("QT%s005", time.Now().Format("20060102"))
	assert.Equal(t, want, quotation.QuoteNumber)
	assert.Equal(t, 30, quotation.ValidityDays)
}

func TestQuotationService_Create_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{ID: "cust-1"}, nil).AnyTimes()

	svc := newQuotationService(t, mockRepo)

	_, err := svc.Create(service.QuotationInput{
		CustomerID:      "cust-1",
		Items:           []service.QuotationItemInput{{Description: "Work", Quantity: 1, UnitPrice: 100}},
		DiscountPercent: 120,
	})
	assert.Error(t, err)

	_, err = svc.Create(service.QuotationInput{CustomerID: "cust-1"})
	assert.Error(t, err)
}

func TestQuotationService_Update_NotEditable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockQuotationRepo.EXPECT().GetByID("quote-1").Return(&models.Quotation{
		ID:     "quote-1",
		Status: models.QuotationStatusSent,
	}, nil)

	svc := newQuotationService(t, mockRepo)
	_, err := svc.Update("quote-1", service.QuotationInput{
		Title: "Changed",
		Items: []service.QuotationItemInput{{Description: "Work", Quantity: 1, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, service.ErrNotEditable)
}

func TestQuotationService_Delete_NotEditable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockQuotationRepo.EXPECT().GetByID("quote-1").Return(&models.Quotation{
		ID:     "quote-1",
		Status: models.QuotationStatusAccepted,
	}, nil)

	svc := newQuotationService(t, mockRepo)
	assert.ErrorIs(t, svc.Delete("quote-1"), service.ErrNotEditable)
}

func TestQuotationService_UpdateStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockQuotationRepo.EXPECT().GetByID("quote-1").Return(&models.Quotation{
		ID:     "quote-1",
		Status: models.QuotationStatusSent,
	}, nil)
	mockQuotationRepo.EXPECT().Update(gomock.Any()).DoAndReturn(func(q *models.Quotation) error {
		assert.Equal(t, models.QuotationStatusAccepted, q.Status)
		assert.True(t, q.RespondedAt.Valid)
		return nil
	})

	svc := newQuotationService(t, mockRepo)
	quotation, err := svc.UpdateStatus("quote-1", models.QuotationStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationStatusAccepted, quotation.Status)
}

func TestQuotationService_UpdateStatus_InvalidTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockQuotationRepo.EXPECT().GetByID("quote-1").Return(&models.Quotation{
		ID:     "quote-1",
		Status: models.QuotationStatusAccepted,
	}, nil)

	svc := newQuotationService(t, mockRepo)
	_, err := svc.UpdateStatus("quote-1", models.QuotationStatusDraft)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestQuotationService_RenderPDF(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	items := models.QuotationItems{{Description: "Consulting", Quantity: 10, UnitPrice: 1200}}
	totals := models.ComputeTotals(items, 0, 7)
	mockQuotationRepo.EXPECT().GetByID("quote-1").Return(&models.Quotation{
		ID:          "quote-1",
		QuoteNumber: "QT20260824001",
		CustomerID:  "cust-1",
		Title:       "Services",
		Items:       items,
		Subtotal:    totals.Subtotal,
		TaxPercent:  7,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.TotalAmount,
		Status:      models.QuotationStatusDraft,
		CreatedAt:   time.Now(),
	}, nil)
	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{
		ID:   "cust-1",
		Name: "Somchai",
	}, nil)

	svc := newQuotationService(t, mockRepo)
	data, filename, err := svc.RenderPDF("quote-1")
	require.NoError(t, err)
	assert.Equal(t, "QT20260824001.pdf", filename)
	assert.True(t, len(data) > 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestQuotationService_Send_UnsupportedChannel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	svc := newQuotationService(t, mockRepo)

	_, err := svc.Send("quote-1", models.ChannelEmail)
	assert.ErrorIs(t, err, service.ErrChannelNotSupported)
}

func TestQuotationService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockQuotationRepo := mocks.NewMockQuotationRepository(ctrl)
	mockRepo.EXPECT().Quotation().Return(mockQuotationRepo).AnyTimes()

	mockQuotationRepo.EXPECT().GetByID("missing").Return(nil, repository.ErrNotFound)

	svc := newQuotationService(t, mockRepo)
	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
