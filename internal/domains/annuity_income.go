package domains

import (
	"context"
	"fmt"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/pipeline"
	"github.com/linsuisheng034/workdatahub/internal/registry"
	"github.com/linsuisheng034/workdatahub/internal/validation"
)

// AnnuityIncomeRowOut is annuity_income's strict Gold row shape (spec §4.4:
// composite key "(月度, 计划代码, company_id) as applicable").
type AnnuityIncomeRowOut struct {
	ReportMonth     string  `db:"月度" validate:"required"`
	PlanCode        string  `db:"计划代码" validate:"required"`
	PlanName        string  `db:"计划名称"`
	InstitutionCode string  `db:"机构代码"`
	InstitutionName string  `db:"机构名称"`
	CustomerName    string  `db:"客户名称"`
	IncomeAmount    float64 `db:"缴费收入" validate:"gte=0"`
	ExpenseAmount   float64 `db:"费用支出" validate:"gte=0"`
	CompanyID       string  `db:"company_id" validate:"required"`
}

// AnnuityIncomeCompositeKey is the uniqueness key spec §4.4 names for this
// domain.
var AnnuityIncomeCompositeKey = []string{"月度", "计划代码", "company_id"}

var annuityIncomeOutputColumns = []string{
	"月度", "计划代码", "计划名称", "机构代码", "机构名称", "客户名称", "缴费收入", "费用支出", "company_id",
}

func annuityIncomeToRowOut(row models.Row) (interface{}, error) {
	month, err := coerceReportMonth(row["月度"])
	if err != nil {
		return nil, fmt.Errorf("月度: %w", err)
	}
	return AnnuityIncomeRowOut{
		ReportMonth:     month,
		PlanCode:        coerceString(row["计划代码"]),
		PlanName:        coerceString(row["计划名称"]),
		InstitutionCode: coerceString(row["机构代码"]),
		InstitutionName: coerceString(row["机构名称"]),
		CustomerName:    coerceString(row["客户名称"]),
		IncomeAmount:    coerceFloat(row["缴费收入"]),
		ExpenseAmount:   coerceFloat(row["费用支出"]),
		CompanyID:       coerceString(row["company_id"]),
	}, nil
}

// BuildAnnuityIncomeSteps assembles annuity_income's step sequence.
func BuildAnnuityIncomeSteps(deps Dependencies) []pipeline.Spec {
	return []pipeline.Spec{
		{Step: pipeline.CleansingStep{ColumnRules: map[string][]string{
			"计划代码": {"trim_whitespace"},
			"客户名称": {"trim_whitespace", "normalize_company_name"},
			"缴费收入": {"remove_currency_symbols", "clean_comma_separated_number"},
			"费用支出": {"remove_currency_symbols", "clean_comma_separated_number"},
		}}},
		{Step: pipeline.CompanyIdResolutionStep{
			Resolver:    deps.Resolver,
			TargetField: "company_id",
			BuildRequest: func(row models.Row) models.ResolutionRequest {
				return models.ResolutionRequest{
					PlanCode:          coerceString(row["计划代码"]),
					CustomerName:      coerceString(row["客户名称"]),
					ExistingCompanyID: coerceString(row["company_id"]),
				}
			},
		}, Retryable: true, Tier: errs.TierNetwork},
		{Step: pipeline.SchemaValidationStep{
			ToRowOut: annuityIncomeToRowOut,
			Validate: validation.ValidateRow,
		}},
		{Step: pipeline.GoldProjectionStep{OutputColumns: annuityIncomeOutputColumns}},
	}
}

// RegisterAnnuityIncome wires the domain into both registries.
func RegisterAnnuityIncome(jobs *registry.JobRegistry, services *registry.DomainServiceRegistry, deps Dependencies) {
	jobs.Register("annuity_income", registry.JobCapabilities{
		SupportsBackfill:   true,
		SupportsEnrichment: true,
	})
	services.Register("annuity_income", registry.DomainService{
		DisplayName:        "Annuity Income",
		SupportsEnrichment: true,
		ServiceFn: func(ctx context.Context, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
			engine := pipeline.NewEngine(deps.Logger, deps.Metrics, deps.Mode)
			return engine.Run(ctx, pc, frame, BuildAnnuityIncomeSteps(deps))
		},
	})
}
