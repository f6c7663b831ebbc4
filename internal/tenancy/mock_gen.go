// internal/tenancy/mock_gen.go
package tenancy

//go:generate mockgen -source=./resolver.go -destination=../mocks/mock_tenancy.go -package=mocks MembershipSource,SelectionStore
