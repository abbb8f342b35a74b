package faults_test

import (
	"errors"
	"fmt"

	"github.com/oasgen/faults"
)

func ExampleNew() {
	rec := faults.New("output directory is not writable", faults.CodeFilePermission, faults.Options{
		Operation: "output.Write",
	})

	fmt.Println(rec.Error())
	// Output: FILE_PERMISSION_DENIED [filesystem/output.Write]: output directory is not writable
}

func ExampleWrap() {
	err := errors.New("dial tcp 10.0.0.1:443: connection refused")
	rec := faults.Wrap(err, faults.CodeNetworkError)

	fmt.Println(rec.Code)
	fmt.Println(rec.Category)
	fmt.Println(errors.Is(rec, err))
	// Output:
	// NETWORK_ERROR
	// network
	// true
}

func ExampleCategoryForCode() {
	fmt.Println(faults.CategoryForCode(faults.CodeTemplateSyntax))
	fmt.Println(faults.CategoryForCode("SOMETHING_ELSE"))
	// Output:
	// template
	// general
}

func ExampleNewValidationError() {
	ve := faults.NewValidationError("spec failed validation", []faults.FieldFailure{
		{Keyword: "required", Path: "/pet", Params: map[string]any{"missingProperty": "name"}},
	}, faults.Options{})

	for _, s := range ve.Solutions {
		fmt.Println(s)
	}
	// Output: Add the required field 'name'
}

func ExampleRecord_IsCategory() {
	rec := faults.New("fetch failed", faults.CodeNetworkTimeout, faults.Options{})

	fmt.Println(rec.IsCategory(faults.CategoryNetwork))
	fmt.Println(rec.HasCode(faults.CodeNetworkTimeout))
	// Output:
	// true
	// true
}
