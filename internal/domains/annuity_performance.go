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

// AnnuityPerformanceRowOut is the strict, fully-typed row shape validation
// coerces into before the Gold frame is written (spec §4.4 RowOut, §6 fact
// table schema). Chinese column names from the source frame map onto
// English Go field names via the db tag — Go's export rule only recognizes
// Unicode "upper case letter" (Lu) as a capital, which Han characters are
// not, so using them as Go field names directly would make every field
// unexported and invisible to validator's reflection.
type AnnuityPerformanceRowOut struct {
	ReportMonth      string  `db:"月度" validate:"required"`
	BusinessType     string  `db:"业务类型"`
	PlanType         string  `db:"计划类型"`
	PlanCode         string  `db:"计划代码" validate:"required"`
	PlanName         string  `db:"计划名称"`
	PortfolioType    string  `db:"组合类型"`
	PortfolioCode    string  `db:"组合代码"`
	PortfolioName    string  `db:"组合名称"`
	CustomerName     string  `db:"客户名称"`
	BeginningBalance float64 `db:"期初资产规模" validate:"gte=0"`
	EndingBalance    float64 `db:"期末资产规模" validate:"gte=0"`
	Contribution     float64 `db:"供款" validate:"gte=0"`
	Withdrawal       float64 `db:"流失" validate:"gte=0"`
	WithdrawalFull   float64 `db:"流失_含待遇支付" validate:"gte=0"`
	BenefitPayment   float64 `db:"待遇支付" validate:"gte=0"`
	InvestmentIncome float64 `db:"投资收益" validate:"gte=0"`
	CurrentYield     float64 `db:"当期收益率"`
	InstitutionCode  string  `db:"机构代码"`
	InstitutionName  string  `db:"机构名称"`
	ProductLineCode  string  `db:"产品线代码"`
	AnnuityAccountNo string  `db:"年金账户号"`
	AnnuityAccountNm string  `db:"年金账户名"`
	CompanyID        string  `db:"company_id" validate:"required"`
}

// AnnuityPerformanceCompositeKey is the uniqueness key spec §4.4 names for
// this domain: (月度, 计划代码, 组合代码, company_id).
var AnnuityPerformanceCompositeKey = []string{"月度", "计划代码", "组合代码", "company_id"}

var annuityPerformanceOutputColumns = []string{
	"月度", "业务类型", "计划类型", "计划代码", "计划名称", "组合类型", "组合代码", "组合名称",
	"客户名称", "期初资产规模", "期末资产规模", "供款", "流失", "流失_含待遇支付", "待遇支付",
	"投资收益", "当期收益率", "机构代码", "机构名称", "产品线代码", "年金账户号", "年金账户名", "company_id",
}

func annuityPerformanceToRowOut(row models.Row) (interface{}, error) {
	month, err := coerceReportMonth(row["月度"])
	if err != nil {
		return nil, fmt.Errorf("月度: %w", err)
	}
	return AnnuityPerformanceRowOut{
		ReportMonth:      month,
		BusinessType:     coerceString(row["业务类型"]),
		PlanType:         coerceString(row["计划类型"]),
		PlanCode:         coerceString(row["计划代码"]),
		PlanName:         coerceString(row["计划名称"]),
		PortfolioType:    coerceString(row["组合类型"]),
		PortfolioCode:    coerceString(row["组合代码"]),
		PortfolioName:    coerceString(row["组合名称"]),
		CustomerName:     coerceString(row["客户名称"]),
		BeginningBalance: coerceFloat(row["期初资产规模"]),
		EndingBalance:    coerceFloat(row["期末资产规模"]),
		Contribution:     coerceFloat(row["供款"]),
		Withdrawal:       coerceFloat(row["流失"]),
		WithdrawalFull:   coerceFloat(row["流失_含待遇支付"]),
		BenefitPayment:   coerceFloat(row["待遇支付"]),
		InvestmentIncome: coerceFloat(row["投资收益"]),
		CurrentYield:     coerceFloat(row["当期收益率"]),
		InstitutionCode:  coerceString(row["机构代码"]),
		InstitutionName:  coerceString(row["机构名称"]),
		ProductLineCode:  coerceString(row["产品线代码"]),
		AnnuityAccountNo: coerceString(row["年金账户号"]),
		AnnuityAccountNm: coerceString(row["年金账户名"]),
		CompanyID:        coerceString(row["company_id"]),
	}, nil
}

// BuildAnnuityPerformanceSteps assembles the domain's step sequence from
// the standard step library: cleansing, company-ID resolution, row
// validation, then Gold projection.
func BuildAnnuityPerformanceSteps(deps Dependencies) []pipeline.Spec {
	return []pipeline.Spec{
		{Step: pipeline.CleansingStep{ColumnRules: map[string][]string{
			"计划代码":  {"trim_whitespace"},
			"客户名称":  {"trim_whitespace", "normalize_company_name"},
			"机构名称":  {"trim_whitespace"},
			"期初资产规模": {"remove_currency_symbols", "clean_comma_separated_number"},
			"期末资产规模": {"remove_currency_symbols", "clean_comma_separated_number"},
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
			ToRowOut: annuityPerformanceToRowOut,
			Validate: validation.ValidateRow,
		}},
		{Step: pipeline.GoldProjectionStep{OutputColumns: annuityPerformanceOutputColumns}},
	}
}

// RegisterAnnuityPerformance wires the domain into both registries.
func RegisterAnnuityPerformance(jobs *registry.JobRegistry, services *registry.DomainServiceRegistry, deps Dependencies) {
	jobs.Register("annuity_performance", registry.JobCapabilities{
		SupportsBackfill:   true,
		SupportsEnrichment: true,
	})
	services.Register("annuity_performance", registry.DomainService{
		DisplayName:        "Annuity Performance",
		SupportsEnrichment: true,
		ServiceFn: func(ctx context.Context, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
			engine := pipeline.NewEngine(deps.Logger, deps.Metrics, deps.Mode)
			return engine.Run(ctx, pc, frame, BuildAnnuityPerformanceSteps(deps))
		},
	})
}
