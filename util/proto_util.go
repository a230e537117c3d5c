package util

import "google.golang.org/protobuf/types/known/structpb"

func ConvertToProto(data map[string]any) (*structpb.Struct, error) {
	if data == nil {
		data = map[string]any{}
	}
	return structpb.NewStruct(data)
}

func ConvertFromProto(data *structpb.Struct) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data.AsMap()
}
