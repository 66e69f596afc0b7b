package search

import "brokerportal/api/internal/store"

// AccountRecord is the data indexed per customer account.
type AccountRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Status        string   `json:"status"`
	PolicyNumbers []string `json:"policyNumbers"`
}

func RecordFromAccount(a store.CustomerAccount) AccountRecord {
	numbers := make([]string, 0, len(a.Policies))
	for _, p := range a.Policies {
		numbers = append(numbers, p.PolicyNumber)
	}
	return AccountRecord{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Status:        a.Status,
		PolicyNumbers: numbers,
	}
}
