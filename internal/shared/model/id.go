package model

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID 生成实体 ID（24 位十六进制 ObjectID）
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IsValidID 是否为合法的实体 ID
func IsValidID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}
