package detector

import "sort"

// EntityType describes one PII entity type the detection service reports.
type EntityType struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

var entityDescriptions = map[string]string{
	"ADDRESS":             `A physical address, such as "100 Main Street, Anytown, USA" or "Suite #12, Building 123". An address can include a street, building, location, city, state, country, county, zip, precinct, neighborhood, and more.`,
	"AGE":                 `An individual's age, including the quantity and unit of time. For example, in the phrase "I am 40 years old," "40 years" is recognized as an age.`,
	"AWS_ACCESS_KEY":      `A unique identifier that's associated with a secret access key; the access key ID and secret access key are used together to sign programmatic AWS requests cryptographically.`,
	"AWS_SECRET_KEY":      `A unique identifier that's associated with an access key; the access key ID and secret access key are used together to sign programmatic AWS requests cryptographically.`,
	"BANK_ACCOUNT_NUMBER": `A US bank account number. These are typically between 10 - 12 digits long, but numbers are also recognized when only the last 4 digits are present.`,
	"BANK_ROUTING":        `A US bank account routing number. These are typically 9 digits long, but numbers are also recognized when only the last 4 digits are present.`,
	"CREDIT_DEBIT_CVV":    `A 3-digit card verification code (CVV) that is present on VISA, MasterCard, and Discover credit and debit cards. In American Express credit or debit cards, it is a 4-digit numeric code.`,
	"CREDIT_DEBIT_EXPIRY": `The expiration date for a credit or debit card. This number is usually 4 digits long and formatted as month/year or MM/YY, such as 01/21, 01/2021, and Jan 2021.`,
	"CREDIT_DEBIT_NUMBER": `The number for a credit or debit card. These numbers can vary from 13 to 16 digits in length, but numbers are also recognized when only the last 4 digits are present.`,
	"DATE_TIME":           `A date can include a year, month, day, day of week, or time of day, such as "January 19, 2020" or "11 am". Partial dates, date ranges, date intervals and decades such as "the 1990s" are recognized.`,
	"DRIVER_ID":           `The number assigned to a driver's license, which is an official document permitting an individual to operate one or more motorized vehicles on a public road. A driver's license number consists of alphanumeric characters.`,
	"EMAIL":               `An email address, such as marymajor@email.com.`,
	"IP_ADDRESS":          `An IPv4 address, such as 198.51.100.0.`,
	"MAC_ADDRESS":         `A media access control (MAC) address is a unique identifier assigned to a network interface controller (NIC).`,
	"NAME":                `An individual's name. This entity type does not include titles, such as Mr., Mrs., Miss, or Dr., and is not applied to names that are part of organizations or addresses.`,
	"PASSPORT_NUMBER":     `A US passport number. Passport numbers range from 6 - 9 alphanumeric characters.`,
	"PASSWORD":            `An alphanumeric string that is used as a password, such as "*very20special#pass*".`,
	"PHONE":               `A phone number. This entity type also includes fax and pager numbers.`,
	"PIN":                 `A 4-digit personal identification number (PIN) that allows someone to access their bank account information.`,
	"SSN":                 `A Social Security Number (SSN) is a 9-digit number that is issued to US citizens, permanent residents, and temporary working residents. Numbers are also recognized when only the last 4 digits are present.`,
	"URL":                 `A web address, such as www.example.com.`,
	"USERNAME":            `A user name that identifies an account, such as a login name, screen name, nick name, or handle.`,
}

// entityTypeNames lists every entity type the service can return.
var entityTypeNames = []string{
	"BANK_ACCOUNT_NUMBER",
	"BANK_ROUTING",
	"CREDIT_DEBIT_NUMBER",
	"CREDIT_DEBIT_CVV",
	"CREDIT_DEBIT_EXPIRY",
	"PIN",
	"EMAIL",
	"ADDRESS",
	"NAME",
	"PHONE",
	"SSN",
	"DATE_TIME",
	"PASSPORT_NUMBER",
	"DRIVER_ID",
	"URL",
	"AGE",
	"USERNAME",
	"PASSWORD",
	"AWS_ACCESS_KEY",
	"AWS_SECRET_KEY",
	"IP_ADDRESS",
	"MAC_ADDRESS",
	"LICENSE_PLATE",
	"VEHICLE_IDENTIFICATION_NUMBER",
	"UK_NATIONAL_INSURANCE_NUMBER",
	"CA_SOCIAL_INSURANCE_NUMBER",
	"US_INDIVIDUAL_TAX_IDENTIFICATION_NUMBER",
	"UK_UNIQUE_TAXPAYER_REFERENCE_NUMBER",
	"IN_PERMANENT_ACCOUNT_NUMBER",
	"IN_NREGA",
	"INTERNATIONAL_BANK_ACCOUNT_NUMBER",
	"SWIFT_CODE",
	"UK_NATIONAL_HEALTH_SERVICE_NUMBER",
	"CA_HEALTH_NUMBER",
	"IN_AADHAAR",
	"UK_VOTER_NUMBER",
	"IN_VOTER_NUMBER",
}

// EntityTypes returns the catalogue sorted by name.
func EntityTypes() []EntityType {
	out := make([]EntityType, 0, len(entityTypeNames))
	for _, name := range entityTypeNames {
		out = append(out, EntityType{Name: name, Description: entityDescriptions[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsEntityType reports whether name is in the catalogue.
func IsEntityType(name string) bool {
	for _, n := range entityTypeNames {
		if n == name {
			return true
		}
	}
	return false
}
