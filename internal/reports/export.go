package reports

import (
	"fmt"

	"partner-portal/pkg/models"

	"github.com/xuri/excelize/v2"
)

// ExportPartnerXLSX выгружает отчет партнера в файл Excel
func ExportPartnerXLSX(report *models.PartnerReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Отчет"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheetName, "A1", "Партнер")
	f.SetCellValue(sheetName, "B1", report.PartnerName)
	f.SetCellValue(sheetName, "A2", "Email")
	f.SetCellValue(sheetName, "B2", report.PartnerEmail)
	if report.DateFrom != nil {
		f.SetCellValue(sheetName, "A3", "Период с")
		f.SetCellValue(sheetName, "B3", report.DateFrom.Format("02.01.2006"))
	}
	if report.DateTo != nil {
		f.SetCellValue(sheetName, "A4", "Период по")
		f.SetCellValue(sheetName, "B4", report.DateTo.Format("02.01.2006"))
	}

	m := report.Metrics
	metricRows := []struct {
		label string
		value any
	}{
		{"Переходов по ссылкам", m.TotalClicks},
		{"Заявок", m.TotalLeads},
		{"Сделок", m.TotalDeals},
		{"Успешных сделок", m.TotalSuccessfulDeals},
		{"Проваленных сделок", m.TotalLostDeals},
		{"В работе", m.LeadsInProgress},
		{"Конверсия заявки→сделки, %", m.ConversionLeadsToDeals},
		{"Конверсия сделки→успех, %", m.ConversionDealsToSuccessful},
		{"Сумма сделок", m.TotalDealAmount.StringFixed(2)},
		{"Вознаграждение всего", m.TotalCommission.StringFixed(2)},
		{"Выплачено", m.PaidCommission.StringFixed(2)},
		{"К выплате", m.UnpaidCommission.StringFixed(2)},
		{"Запросов на выплату", m.PaymentRequestsTotal},
		{"Сумма запросов", m.PaymentRequestsAmount.StringFixed(2)},
	}
	row := 6
	for _, mr := range metricRows {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), mr.label)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), mr.value)
		row++
	}

	row += 1
	headers := []string{"Имя", "Email", "Телефон", "Статус сделки", "Сумма сделки", "Вознаграждение", "Выплачено", "Создан"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheetName, cell, header)
	}
	row++

	for _, c := range report.Clients {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), c.Name)
		if c.Email != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), *c.Email)
		}
		if c.Phone != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), *c.Phone)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), c.DealStatus)
		if c.DealAmount != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), c.DealAmount.StringFixed(2))
		}
		if c.PartnerReward != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), c.PartnerReward.StringFixed(2))
		}
		if c.IsPaid {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), "да")
		} else {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), "нет")
		}
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), c.CreatedAt)
		row++
	}

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "H", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка записи файла отчета: %w", err)
	}
	return buf.Bytes(), nil
}
