// Package validation содержит проверки форматов пользовательских данных.
package validation

// customerCodeLen — длина кода клиента: 4 случайных байта в hex-представлении.
const customerCodeLen = 8

// IsValidCustomerCode проверяет, что строка является корректным кодом клиента:
// ровно 8 символов, только цифры и заглавные латинские буквы A–F.
func IsValidCustomerCode(code string) bool {
	if len(code) != customerCodeLen {
		return false
	}

	for _, c := range code {
		if c >= '0' && c <= '9' {
			continue
		}
		if c >= 'A' && c <= 'F' {
			continue
		}
		return false
	}

	return true
}
